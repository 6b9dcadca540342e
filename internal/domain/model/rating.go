package model

import (
	"fmt"
	"strings"
	"time"
)

// SeasonStats is the raw descriptive record for an athlete's season.
// Stats holds named statistics; a name absent from the map was not reported.
type SeasonStats struct {
	AthleteID   string
	Name        string
	Team        string
	Season      int
	Role        string
	Minutes     float64
	GamesPlayed float64
	Stats       map[string]float64
}

// SeasonKey identifies an athlete's season with one team.
func SeasonKey(athleteID string, season int, team string) string {
	return fmt.Sprintf("%s|%d|%s", strings.TrimSpace(athleteID), season, strings.TrimSpace(team))
}

// SeasonalRating is the normalized performance of an athlete in one season.
// Nil pointers mean "undefined" (ineligible athlete or no prior season).
type SeasonalRating struct {
	AthleteID string
	Name      string
	Season    int
	Team      string
	Role      string
	Minutes   float64
	Eligible  bool

	AttackRaw   float64
	DefenseRaw  float64
	NegativeRaw float64
	TotalRaw    float64

	AttackShrunk    *float64
	DefenseShrunk   *float64
	TotalShrunk     *float64
	PercentileRank  *float64
	PrevSeasonScore *float64
	ScoreDelta      *float64
}

// CareerRating collapses an athlete's eligible seasons into one rating.
type CareerRating struct {
	AthleteID        string
	Name             string
	TotalMinutes     float64
	SeasonsPlayed    int
	CareerAttack     float64
	CareerDefense    float64
	CareerTotal      float64
	CareerPercentile float64
	PeakTotal        float64
	PeakPercentile   float64
}

// TeamStrength is the minutes-weighted strength of one side of a match.
type TeamStrength struct {
	MatchKey        string
	Season          int
	Date            time.Time
	Team            string
	Side            Side
	Opponent        string
	Attack          float64
	Defense         float64
	Total           float64
	RosterCount     int
	MinutesSum      float64
	RatedCount      int
	RatedMinutes    float64
	FallbackMinutes float64
	CoverageRate    float64
	CoverageOK      bool
	UncoveredIDs    []string
	UncoveredNames  []string
}

// MatchFeatures joins both sides of a match into home-minus-away differentials.
// Positive values favour the home side.
type MatchFeatures struct {
	MatchKey       string
	Season         int
	Date           time.Time
	HomeTeam       string
	AwayTeam       string
	DiffTotal      float64
	DiffAttack     float64
	DiffDefense    float64
	HomeTotal      float64
	AwayTotal      float64
	BothCoverageOK bool

	HomeFormPoints float64
	AwayFormPoints float64
	HomeFormGoals  float64
	AwayFormGoals  float64
	DiffFormPoints float64
	DiffFormGoals  float64
}

// Float returns a pointer to v, for populating nullable rating fields.
func Float(v float64) *float64 { return &v }
