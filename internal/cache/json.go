// SPDX-License-Identifier: MIT

package cache

import (
	"encoding/json"
	"time"
)

// GetJSON retrieves and decodes a JSON value from the cache.
// A decode failure counts as a miss; stale garbage is never surfaced.
func GetJSON(c Cache, key string, v any) bool {
	raw, ok := c.Get(key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false
	}
	return true
}

// SetJSON encodes and stores a JSON value in the cache. Best effort.
func SetJSON(c Cache, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(key, string(data), ttl)
}
