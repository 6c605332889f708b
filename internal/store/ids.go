package store

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator generates entity ids. Implemented by UUIDv7Generator
// (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 entity ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making ids
// sortable by creation time - helpful when scanning the entities table
// by hand.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns sequential predetermined ids for tests, so
// spawned entities have stable ids in golden output.
type FixedGenerator struct {
	prefix string
	n      int
}

// NewFixedGenerator creates a generator producing "<prefix>-1",
// "<prefix>-2", ...
func NewFixedGenerator(prefix string) *FixedGenerator {
	return &FixedGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *FixedGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
