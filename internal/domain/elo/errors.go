package elo

import "errors"

var (
	// ErrNilState is returned when Advance is called without a rating state.
	ErrNilState = errors.New("elo: nil rating state")
	// ErrMatchNotFinished is returned when Advance is given a match without a final score.
	ErrMatchNotFinished = errors.New("elo: match not finished")
	// ErrEmptyGrid is returned when a tuning grid has no cells.
	ErrEmptyGrid = errors.New("elo: empty tuning grid")
	// ErrNoPredictions is returned when no grid cell processed a single match.
	ErrNoPredictions = errors.New("elo: no match could be rated")
)
