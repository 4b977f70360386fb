package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// CacheRetention bounds how long fetch results are kept around for
	// stale-but-present display. Zero keeps them forever.
	CacheRetention time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       4,
		MinIdleConns:   1,
		CacheRetention: 7 * 24 * time.Hour,
	}
}
