// Package uuidutil parses and generates the IDs of sweeps and stored results.
package uuidutil

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNilID is returned when an ID parses to the nil UUID.
var ErrNilID = errors.New("nil UUID is not a valid ID")

// Parse parses s, ignoring surrounding whitespace. The nil UUID is rejected
// because no sweep or result is ever stored under it.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, ErrNilID
	}
	return id, nil
}

// New generates a new random UUID v4
func New() uuid.UUID {
	return uuid.New()
}

// Nil returns the nil UUID constant (00000000-0000-0000-0000-000000000000)
func Nil() uuid.UUID {
	return uuid.Nil
}
