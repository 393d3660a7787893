package services

import (
	"errors"

	"habit-league-system/store"
)

// Operation-boundary error taxonomy. AlreadyProcessed is deliberately not
// here: an idempotent replay is a success variant reported on the result
// struct, never an error.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrConflict             = errors.New("conflict")
)

// IsTerminal reports whether err is a genuine application error that a
// replay worker must not retry. Anything else is treated as transient
// (storage/transport) and may be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientResource)
}

func translateStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
