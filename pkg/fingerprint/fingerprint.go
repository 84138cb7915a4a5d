// Package fingerprint derives stable cache keys from request descriptions.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Key generates a deterministic fingerprint for a request.
// The same method, endpoint, and body always produce the same key;
// different bodies for the same endpoint produce different keys.
func Key(method, endpoint string, body []byte) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{0})
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	if len(body) > 0 {
		h.Write(body)
	}
	return fmt.Sprintf("fp:%016x", h.Sum64())
}

// Shard maps a key onto one of n buckets. Used by callers that
// partition work by key while preserving per-key affinity.
func Shard(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
