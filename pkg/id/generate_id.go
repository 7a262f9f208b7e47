package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 lowercase hex characters; the CLI tags each run's logs with one.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewRequestID returns a lowercase v4 UUID for the Ax-Request-Id header.
func NewRequestID() string { return uuid.NewString() }
