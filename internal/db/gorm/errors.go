// Package gorm provides GORM-based database operations for periscope.
package gorm

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Storage error taxonomy. Point lookups report absence as (nil, nil) rather
// than an error; everything else falls into one of these classes.
var (
	// ErrValidation marks a malformed entity rejected at write time.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateKey marks an identifier collision on insert.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageUnavailable marks an infrastructure failure. It is fatal to
	// the calling operation and never retried inside the store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// validationErr wraps an entity validation failure.
func validationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// translateWriteErr classifies a driver error from an insert or update.
// Primary-key and unique-constraint violations become ErrDuplicateKey; any
// other failure is treated as storage unavailability.
func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// translateReadErr classifies a driver error from a query. Record-not-found
// is handled by callers before reaching here.
func translateReadErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
