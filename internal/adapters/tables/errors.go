package tables

import "errors"

// Sentinel kinds for table errors.
var (
	ErrMissingInput  = errors.New("input table not found")
	ErrMissingColumn = errors.New("required column missing")
	ErrBadValue      = errors.New("malformed value")
)
