package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a short hex ID used to correlate outgoing API requests in
// logs. Not a credential; collisions are harmless.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
