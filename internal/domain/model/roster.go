package model

import "time"

// Roster provenance tags.
const (
	SourceCalculated = "calculated"
	SourceMissing    = "missing"
)

// MissingAthleteID marks the sentinel row emitted for a team with no known athletes.
const MissingAthleteID = "MISSING"

// PlayerSeason is one athlete's appearance record for a team in a season.
type PlayerSeason struct {
	AthleteID string
	Name      string
	Team      string
	Season    int
	Minutes   float64
	Role      string
}

// RosterAssignment places an athlete on a team's roster for one match with
// an expected share of the team's minutes.
type RosterAssignment struct {
	MatchKey        string
	Season          int
	Date            time.Time
	Team            string
	AthleteID       string
	AthleteName     string
	ExpectedMinutes float64
	Source          string
}

// IsMissing reports whether the assignment is the sentinel for an empty roster.
func (a RosterAssignment) IsMissing() bool {
	return a.Source == SourceMissing || a.AthleteID == MissingAthleteID
}

// HistoryRow is the rating an athlete carried into a match, before that match
// was applied.
type HistoryRow struct {
	MatchKey  string
	AthleteID string
	Team      string
	Date      time.Time
	Rating    float64
}
