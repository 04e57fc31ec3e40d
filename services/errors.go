package services

import (
	"errors"
	"fmt"
)

var (
	// ErrBarbershopNotFound is returned when the tenant does not exist or is inactive.
	ErrBarbershopNotFound = errors.New("barbershop not found")
	// ErrEntryNotFound is returned when a queue entry id does not exist for the tenant.
	ErrEntryNotFound = errors.New("reminder queue entry not found")
)

// StorageError wraps a database failure. Callers treat it as transient.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// InvariantError reports data that can only exist through a programming error,
// as opposed to an expected absence such as a deleted appointment.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
