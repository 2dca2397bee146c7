// Package cache records which audio payloads have already been extracted,
// so batch re-runs do not submit (and pay for) the same recording twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for a byte-valued key/value store with expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// AudioKey derives a stable key from an audio payload and the settings that
// shape its extraction (identification policy, prompt version, model).
func AudioKey(audio []byte, variant string) string {
	h := sha256.New()
	h.Write(audio)
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return "v1-" + hex.EncodeToString(h.Sum(nil))
}
