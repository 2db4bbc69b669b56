// Package cache notifies edge caches that a user's activity summary has changed.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Invalidator defines a cache invalidation contract.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID, userID string) error
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string, string) error { return nil }

// HTTPInvalidator calls an upstream edge cache invalidation endpoint.
type HTTPInvalidator struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPInvalidator constructs an HTTPInvalidator.
func NewHTTPInvalidator(endpoint, token string, timeout time.Duration) *HTTPInvalidator {
	return &HTTPInvalidator{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/"),
		token:  token,
	}
}

type invalidationRequest struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Keys     []string `json:"keys"`
}

// Keys returns the cache keys that hold derived views of the user's activity.
func Keys(tenantID, userID string) []string {
	prefix := fmt.Sprintf("activity:%s:%s", tenantID, userID)
	return []string{prefix + ":summary", prefix + ":recent"}
}

// Invalidate POSTs the user's cache keys to the configured endpoint.
func (h *HTTPInvalidator) Invalidate(ctx context.Context, tenantID, userID string) error {
	body, err := json.Marshal(invalidationRequest{
		TenantID: tenantID,
		UserID:   userID,
		Keys:     Keys(tenantID, userID),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &InvalidationError{Status: resp.StatusCode}
	}
	return nil
}

// InvalidationError represents a non-successful invalidation response.
type InvalidationError struct {
	Status int
}

func (e *InvalidationError) Error() string {
	return "cache invalidation failed with status " + http.StatusText(e.Status)
}
