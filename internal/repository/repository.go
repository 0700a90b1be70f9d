// Package repository holds the gorm-backed data access for profiles,
// browse history, the roulette queue, pairs, photos and contacts.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when an expected row is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent writer changed the rows a
	// multi-step update depends on. Callers retry.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrLimitReached is returned when a per-user quota is exhausted.
	ErrLimitReached = errors.New("limit reached")

	// ErrDuplicate is returned when an equivalent row already exists.
	ErrDuplicate = errors.New("already exists")
)

// notFound turns gorm's not-found into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// canonical orders a pair of user ids smaller first.
func canonical(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
