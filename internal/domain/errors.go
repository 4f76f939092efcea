package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidCursor is returned when a pagination token does not decode to a
	// structurally valid (created_at, id) pair.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidBase64 is returned when an ingest payload is not decodable
	// base64 after normalization.
	ErrInvalidBase64 = errors.New("invalid base64 payload")

	// ErrStorage wraps blob-store failures so handlers can surface them as a
	// generic failure without leaking backend detail.
	ErrStorage = errors.New("storage failure")
)

// TruncatedError signals that a bounded fetch hit its row cap before the
// underlying result set was exhausted. It is a condition, not a fault: callers
// that cannot tolerate a partial set (the PDF export) must refuse to proceed.
type TruncatedError struct {
	MaxRows int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("result truncated at %d rows", e.MaxRows)
}

// FieldError carries per-field validation detail for 400 responses.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is allows errors.Is(err, domain.ErrValidation) to match field errors.
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}
