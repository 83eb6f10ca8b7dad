package config

import "time"

// CacheConfig controls the Redis response cache. Only idempotent reads are
// cached; the trip search endpoint is its main consumer since stale
// availability there is harmless (seat counts are re-validated under the
// row lock at booking time anyway).
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig builds the cache settings from the environment with
// defaults suitable for the search endpoint.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
