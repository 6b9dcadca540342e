package strength

import "github.com/okian/squadrank/internal/domain/model"

// Provenance tells where a rating came from.
type Provenance int

// Provenances.
const (
	// Missing means no rating was found and zero was used.
	Missing Provenance = iota
	// Direct is a rating from the source's primary table.
	Direct
	// Fallback is a rating taken from a secondary table.
	Fallback
	// Default is the source's starting value for an unseen athlete.
	Default
)

// String returns a lowercase label.
func (p Provenance) String() string {
	switch p {
	case Direct:
		return "direct"
	case Fallback:
		return "fallback"
	case Default:
		return "default"
	default:
		return "missing"
	}
}

// Covered reports whether minutes backed by this provenance count toward
// coverage.
func (p Provenance) Covered() bool {
	return p == Direct || p == Default
}

// Rating is an athlete's attack, defense and total value.
type Rating struct {
	Attack  float64
	Defense float64
	Total   float64
}

// RatingSource resolves the rating used for one roster row.
type RatingSource interface {
	Lookup(row model.RosterAssignment) (Rating, Provenance)
	Name() string
}

type historyKey struct {
	match   string
	athlete string
}

// RollingSource serves pre-match Elo ratings from the tracker's history and
// from snapshots of skipped matches. An athlete with neither gets the
// starting rating as a Default. Attack and defense mirror the total.
type RollingSource struct {
	pre   map[historyKey]float64
	start float64
}

// NewRollingSource indexes history rows by (match key, athlete).
func NewRollingSource(history []model.HistoryRow, start float64) *RollingSource {
	s := &RollingSource{pre: make(map[historyKey]float64, len(history)), start: start}
	for _, h := range history {
		s.pre[historyKey{match: h.MatchKey, athlete: h.AthleteID}] = h.Rating
	}
	return s
}

// Include adds ratings read for matches the tracker skipped. Rows already
// present from history win.
func (s *RollingSource) Include(snapshots []model.HistoryRow) *RollingSource {
	for _, h := range snapshots {
		k := historyKey{match: h.MatchKey, athlete: h.AthleteID}
		if _, ok := s.pre[k]; !ok {
			s.pre[k] = h.Rating
		}
	}
	return s
}

// Name implements RatingSource.
func (s *RollingSource) Name() string { return "rolling" }

// Lookup implements RatingSource.
func (s *RollingSource) Lookup(row model.RosterAssignment) (Rating, Provenance) {
	if r, ok := s.pre[historyKey{match: row.MatchKey, athlete: row.AthleteID}]; ok {
		return Rating{Attack: r, Defense: r, Total: r}, Direct
	}
	return Rating{Attack: s.start, Defense: s.start, Total: s.start}, Default
}

type seasonKey struct {
	athlete string
	season  int
}

// SeasonalSource serves the athlete's shrunk seasonal scores for the match
// season, falling back to the career rating and then to zero.
type SeasonalSource struct {
	seasonal map[seasonKey]Rating
	career   map[string]Rating
}

// NewSeasonalSource indexes eligible seasonal ratings and career ratings.
// career may be nil.
func NewSeasonalSource(seasonal []model.SeasonalRating, career []model.CareerRating) *SeasonalSource {
	s := &SeasonalSource{
		seasonal: make(map[seasonKey]Rating, len(seasonal)),
		career:   make(map[string]Rating, len(career)),
	}
	for _, r := range seasonal {
		if r.AttackShrunk == nil || r.DefenseShrunk == nil || r.TotalShrunk == nil {
			continue
		}
		s.seasonal[seasonKey{athlete: r.AthleteID, season: r.Season}] = Rating{
			Attack:  *r.AttackShrunk,
			Defense: *r.DefenseShrunk,
			Total:   *r.TotalShrunk,
		}
	}
	for _, c := range career {
		s.career[c.AthleteID] = Rating{Attack: c.CareerAttack, Defense: c.CareerDefense, Total: c.CareerTotal}
	}
	return s
}

// Name implements RatingSource.
func (s *SeasonalSource) Name() string { return "seasonal" }

// Lookup implements RatingSource.
func (s *SeasonalSource) Lookup(row model.RosterAssignment) (Rating, Provenance) {
	if r, ok := s.seasonal[seasonKey{athlete: row.AthleteID, season: row.Season}]; ok {
		return r, Direct
	}
	if r, ok := s.career[row.AthleteID]; ok {
		return r, Fallback
	}
	return Rating{}, Missing
}
