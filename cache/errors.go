package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when a key (or store name) has characters
	// outside of [0-9a-zA-Z_]. Nothing is read or written in that case.
	ErrInvalidKey = errors.New("invalid cache key name")
	// ErrNotFound is returned when a key is missing or the store expired
	ErrNotFound = errors.New("not found")
	// ErrExpired is returned (together with ErrNotFound) when the store
	// is older than the requested lifetime
	ErrExpired = errors.New("store expired")
	// ErrUnusable is returned by operations on a store whose file could not
	// be resolved or accessed when it was opened
	ErrUnusable = errors.New("datastore is not usable")
	// ErrValueTooLarge is returned when an entry line would be longer
	// than u.MaxLineSize and therefore unreadable
	ErrValueTooLarge = errors.New("value too large")

	errExpiredMiss = fmt.Errorf("%w: %w", ErrNotFound, ErrExpired)
)

// Error describes a failed store operation
type Error struct {
	Op    string
	Store string
	Key   string
	Err   error
}

func (e *Error) Error() string {
	s := "cache: " + e.Op + " " + e.Store
	if e.Key != "" {
		s += "/" + e.Key
	}
	return s + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (s *Store) wrapErr(op string, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Store: s.name, Key: key, Err: err}
}
