package util

import (
	"crypto/rand"
	"encoding/hex"
)

// idByteLen yields 24 hex characters, enough for log correlation without
// bloating every log line.
const idByteLen = 12

// NewID generates a random hex identifier, used for request correlation.
func NewID() string {
	buf := make([]byte, idByteLen)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
