package service

import (
	"errors"
	"fmt"
)

// Error classes returned by the service layer. Callers classify with errors.Is.
var (
	// ErrNotFound: the task is absent or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrValidation: bad progress value, missing title, malformed patch.
	ErrValidation = errors.New("validation error")
	// ErrUpstream: the command translator failed or answered garbage.
	ErrUpstream = errors.New("upstream error")
	// ErrStorage: the database rejected a write or a transaction failed.
	ErrStorage = errors.New("storage error")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// classified reports whether err already carries one of the service error classes.
func classified(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUpstream) || errors.Is(err, ErrStorage)
}
