// Package repository holds the ordered rating board over final athlete ratings.
package repository

import "context"

// Entry represents a rating board row.
type Entry struct {
	Rank      int
	AthleteID string
	Name      string
	Team      string
	Rating    float64
	Matches   int
}

// Store provides read/write access to the rating board.
type Store interface {
	// Upsert sets the current rating of an athlete, replacing any earlier value.
	// Returns true if the board changed, false if the entry was identical or
	// below the minimum match count.
	Upsert(ctx context.Context, e Entry) (bool, error)

	// Rank returns the current rank and rating of an athlete.
	// Returns ErrNotFound if the athlete is unknown.
	Rank(ctx context.Context, athleteID string) (Entry, error)

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of athletes on the board.
	Count(ctx context.Context) int
}
