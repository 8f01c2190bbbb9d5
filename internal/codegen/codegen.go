// Package codegen produces short human-shareable codes. Uniqueness is not
// guaranteed by construction; callers verify against persisted state and
// retry up to MaxAttempts before giving up.
package codegen

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// Alphabet omits visually ambiguous characters (0/O, 1/I).
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the number of random characters after the prefix.
const CodeLength = 6

// MaxAttempts bounds the existence-check-then-insert retry loop. Exceeding
// it means the alphabet/length is too small for the code volume.
const MaxAttempts = 8

// Generator mints codes as prefix + CodeLength random alphabet characters.
type Generator struct {
	prefix string
	gen    func() string
}

// New creates a generator with the given prefix (may be empty).
func New(prefix string) (*Generator, error) {
	gen, err := nanoid.CustomASCII(Alphabet, CodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build code generator: %w", err)
	}
	return &Generator{prefix: prefix, gen: gen}, nil
}

// Generate returns a fresh candidate code.
func (g *Generator) Generate() string {
	return g.prefix + g.gen()
}
