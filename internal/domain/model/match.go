// Package model contains domain records passed between the engine's layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Match status values as reported by the results feed.
const (
	StatusFinished  = "finished"
	StatusScheduled = "scheduled"
)

// DateLayout is the ISO date layout used in match keys and tables.
const DateLayout = "2006-01-02"

// Side identifies the home or away half of a match.
type Side string

// Match sides.
const (
	Home Side = "home"
	Away Side = "away"
)

// Match is a single fixture. Immutable once finished.
type Match struct {
	Season    int
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int
	Status    string
}

// Key derives the stable match identifier: season, date and both team names,
// e.g. "2023_2023-04-15_Forge_vs_York".
func (m Match) Key() string {
	return MatchKey(m.Season, m.Date, m.HomeTeam, m.AwayTeam)
}

// MatchKey builds a match key from its parts. Spaces in team names become
// underscores so the key is safe to use as a file or column value.
func MatchKey(season int, date time.Time, home, away string) string {
	return fmt.Sprintf("%d_%s_%s_vs_%s",
		season,
		date.Format(DateLayout),
		strings.ReplaceAll(strings.TrimSpace(home), " ", "_"),
		strings.ReplaceAll(strings.TrimSpace(away), " ", "_"),
	)
}

// Finished reports whether the match has a final score.
func (m Match) Finished() bool {
	return strings.EqualFold(strings.TrimSpace(m.Status), StatusFinished)
}

// Outcome returns the actual score for the home and away sides:
// 1/0 for a win/loss and 0.5/0.5 for a draw.
func (m Match) Outcome() (home, away float64) {
	switch {
	case m.HomeScore > m.AwayScore:
		return 1, 0
	case m.HomeScore < m.AwayScore:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// GoalMargin is the absolute goal difference.
func (m Match) GoalMargin() int {
	d := m.HomeScore - m.AwayScore
	if d < 0 {
		return -d
	}
	return d
}

// Team returns the team label playing on the given side.
func (m Match) Team(side Side) string {
	if side == Home {
		return m.HomeTeam
	}
	return m.AwayTeam
}
