package redis

import "fmt"

// Key prefix for all client state
const keyPrefix = "letsplay"

// credentialKey returns the Redis key holding the persisted credential
func credentialKey() string {
	return fmt.Sprintf("%s:credential", keyPrefix)
}

// cacheKey returns the Redis key for a fetch cache entry
func cacheKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", keyPrefix, key)
}
