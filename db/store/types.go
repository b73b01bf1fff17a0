package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidKey = errors.New("invalid key")
)

type InvalidKeyError struct {
	Key    string
	Reason string
}

type NotFoundError struct {
	Collection string
	ID         string
}

// StoreError wraps any backend failure with the operation and collection involved.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s/%s", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %s", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
