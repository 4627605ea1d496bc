package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDriverNotFound means no driver is registered under the requested name.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrSchemaMismatch means the target content model lacks a field the driver needs.
	ErrSchemaMismatch = errors.New("content model schema mismatch")

	// ErrInvalidOptions means driver options failed schema validation.
	ErrInvalidOptions = errors.New("invalid driver options")

	// ErrRunInProgress is returned for a tick that fired while a run was active.
	ErrRunInProgress = errors.New("import run already in progress")
)

// PersistError is a single candidate that could not be saved.
type PersistError struct {
	Title string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %q: %v", e.Title, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// RunError is a failure of a whole importer step.
type RunError struct {
	ImporterID int64
	Driver     string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("importer %d (%s): %v", e.ImporterID, e.Driver, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
