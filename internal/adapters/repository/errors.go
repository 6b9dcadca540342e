package repository

import "errors"

// Sentinel kinds for rating board errors.
var (
	ErrNotFound     = errors.New("athlete not found")
	ErrInvalidLimit = errors.New("invalid board limit")
	ErrEmptyID      = errors.New("athlete id is empty")
)
