package model

import "errors"

// Load and query failures. Callers match them with errors.Is.
var (
	// ErrConnection means the data source could not be reached in time. Retryable.
	ErrConnection = errors.New("data source unreachable")
	// ErrQuery means the fixed query failed, e.g. the table is missing.
	ErrQuery = errors.New("query failed")
	// ErrSchema means required columns are absent after normalization.
	ErrSchema = errors.New("schema mismatch")
	// ErrEmptyDataset is returned by aggregates that are undefined over zero rows.
	ErrEmptyDataset = errors.New("empty dataset")
)

// Retryable reports whether a failed load may succeed if attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnection)
}
