package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// KeyGenerator produces keys for newly stored values.
//
// Contract:
// - Uniqueness: keys must not repeat within a backing namespace.
// - Concurrency: implementations must be safe for concurrent use.
type KeyGenerator interface {
	NewKey() (string, error)
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func() (string, error)

// NewKey calls f.
func (f KeyGeneratorFunc) NewKey() (string, error) {
	return f()
}

// UUIDKeyGenerator generates random (version 4) UUID keys.
type UUIDKeyGenerator struct{}

// NewUUIDKeyGenerator creates a new UUID key generator.
func NewUUIDKeyGenerator() *UUIDKeyGenerator {
	return &UUIDKeyGenerator{}
}

// NewKey returns a new UUID in its canonical 36 character form.
func (g *UUIDKeyGenerator) NewKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("cache: generate key: %w", err)
	}
	return id.String(), nil
}
