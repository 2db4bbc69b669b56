package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Validate checks the loaded values. Load calls it automatically.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StorePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("postgres_url is required when store_driver is postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store_driver must be %q or %q (got %q)", StorePostgres, StoreMemory, c.StoreDriver))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.JWTLeeway < 0 {
		errs = append(errs, fmt.Errorf("jwt_leeway must be >= 0 (got %s)", c.JWTLeeway))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive (rps=%v, burst=%d)", c.RateLimitRPS, c.RateLimitBurst))
	}
	if c.RateLimitIPRPS <= 0 || c.RateLimitIPBurst <= 0 {
		errs = append(errs, fmt.Errorf("per-ip rate limit must be positive (rps=%v, burst=%d)", c.RateLimitIPRPS, c.RateLimitIPBurst))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if c.OutboxPollInterval <= 0 || c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox poll interval and batch size must be positive"))
	}
	if c.DLQPollInterval <= 0 || c.DLQBatchSize <= 0 {
		errs = append(errs, errors.New("dlq poll interval and batch size must be positive"))
	}
	if c.ConsumerRetryBackoff <= 0 || c.ConsumerRetryMaxBackoff < c.ConsumerRetryBackoff {
		errs = append(errs, fmt.Errorf("consumer retry backoff must be positive and not exceed its cap (backoff=%s, max=%s)", c.ConsumerRetryBackoff, c.ConsumerRetryMaxBackoff))
	}
	return errors.Join(errs...)
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses are treated as single-host prefixes.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted_proxies: %w", err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}
