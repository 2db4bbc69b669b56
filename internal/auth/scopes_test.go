package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	member := &Claims{Subject: "user-1", TenantID: "tenant-1", Scopes: map[string]struct{}{ScopeActivityRead: {}}}
	admin := &Claims{Subject: "coach", TenantID: "tenant-1", Scopes: map[string]struct{}{ScopeActivityRead: {}, ScopeActivityAdmin: {}}}

	user, err := ResolveUser(member, "")
	require.NoError(t, err)
	require.Equal(t, "user-1", user)

	user, err = ResolveUser(member, " user-1 ")
	require.NoError(t, err)
	require.Equal(t, "user-1", user)

	_, err = ResolveUser(member, "user-2")
	require.ErrorIs(t, err, ErrForbidden)

	user, err = ResolveUser(admin, "user-2")
	require.NoError(t, err)
	require.Equal(t, "user-2", user)

	_, err = ResolveUser(nil, "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCallerFrom(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	require.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Subject: "user-1", TenantID: "tenant-1"})
	caller, ok := CallerFrom(ctx)
	require.True(t, ok)
	require.Equal(t, Caller{TenantID: "tenant-1", Subject: "user-1"}, caller)
	require.Equal(t, "tenant-1:user-1", caller.Key())

	_, ok = CallerFrom(WithClaims(ctx, &Claims{TenantID: "tenant-1"}))
	require.False(t, ok, "a token without a subject identifies no one")

	_, ok = CallerFrom(WithClaims(ctx, nil))
	require.False(t, ok, "nil claims mask the outer ones")
}

func TestHasAnyScope(t *testing.T) {
	claims := &Claims{Scopes: map[string]struct{}{ScopeActivityWrite: {}}}

	require.True(t, HasAnyScope(claims, ScopeActivityRead, ScopeActivityWrite))
	require.False(t, HasAnyScope(claims, ScopeActivityRead))
	require.False(t, HasAnyScope(claims))
	require.False(t, HasAnyScope(nil, ScopeActivityWrite))
}
