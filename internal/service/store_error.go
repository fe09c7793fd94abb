package service

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrInvalidRole     = errors.New("invalid message role")
)

// StoreError wraps every failure of a persistence call with the operation
// that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
