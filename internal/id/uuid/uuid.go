// Package uuid generates and validates batch identifiers.
package uuid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidID is returned by Validate for strings that are not UUIDs.
var ErrInvalidID = errors.New("invalid batch id")

// Generator creates time-ordered UUID v7 strings, so batch IDs sort by submission.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Validate reports whether id is a well-formed UUID in canonical form.
func Validate(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
