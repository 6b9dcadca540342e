// Package strength aggregates athlete ratings into per-match team strength
// and joins both sides into differential features.
package strength

import (
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
)

const (
	defaultMinutesPerUnit    = 90.0
	defaultCoverageThreshold = 0.80
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinutesPerUnit sets the minutes that count as one full weight.
func WithMinutesPerUnit(m float64) Option {
	return func(a *Aggregator) {
		if m > 0 {
			a.minutesPerUnit = m
		}
	}
}

// WithCoverageThreshold sets the coverage rate a side needs to be flagged OK.
func WithCoverageThreshold(t float64) Option {
	return func(a *Aggregator) {
		if t >= 0 && t <= 1 {
			a.threshold = t
		}
	}
}

// WithMatcher sets how roster team labels are assigned to a match side.
func WithMatcher(m *teamname.Matcher) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.matcher = m
		}
	}
}

// Aggregator computes minutes-weighted team strength.
type Aggregator struct {
	minutesPerUnit float64
	threshold      float64
	matcher        *teamname.Matcher
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		minutesPerUnit: defaultMinutesPerUnit,
		threshold:      defaultCoverageThreshold,
		matcher:        teamname.NewMatcher(nil, teamname.ModeExact),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate emits one row per side of every finished match that has roster
// rows. MISSING sentinel rows add nothing, so a side with only a sentinel
// has zero strength and zero coverage. Rows matching neither side are
// ignored. Output is ordered by season, date, match key, home first.
func (a *Aggregator) Aggregate(matches []model.Match, rows []model.RosterAssignment, src RatingSource) []model.TeamStrength {
	byMatch := make(map[string][]model.RosterAssignment)
	for _, r := range rows {
		byMatch[r.MatchKey] = append(byMatch[r.MatchKey], r)
	}

	var out []model.TeamStrength
	for _, m := range matches {
		if !m.Finished() {
			continue
		}
		key := m.Key()
		roster, ok := byMatch[key]
		if !ok {
			continue
		}
		sides := map[model.Side][]model.RosterAssignment{}
		for _, r := range roster {
			if side, ok := a.matcher.Side(r.Team, m); ok {
				sides[side] = append(sides[side], r)
			}
		}
		for _, side := range []model.Side{model.Home, model.Away} {
			opp := model.Away
			if side == model.Away {
				opp = model.Home
			}
			ts := a.side(sides[side], src)
			ts.MatchKey = key
			ts.Season = m.Season
			ts.Date = m.Date
			ts.Team = m.Team(side)
			ts.Side = side
			ts.Opponent = m.Team(opp)
			out = append(out, ts)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Season != y.Season {
			return x.Season < y.Season
		}
		if !x.Date.Equal(y.Date) {
			return x.Date.Before(y.Date)
		}
		if x.MatchKey != y.MatchKey {
			return x.MatchKey < y.MatchKey
		}
		return x.Side == model.Home && y.Side != model.Home
	})
	return out
}

// side sums one team's roster.
func (a *Aggregator) side(rows []model.RosterAssignment, src RatingSource) model.TeamStrength {
	var ts model.TeamStrength
	for _, r := range rows {
		if r.IsMissing() {
			continue
		}
		minutes := r.ExpectedMinutes
		if minutes < 0 {
			minutes = 0
		}
		rating, prov := src.Lookup(r)
		w := minutes / a.minutesPerUnit
		ts.Attack += rating.Attack * w
		ts.Defense += rating.Defense * w
		ts.Total += rating.Total * w
		ts.RosterCount++
		ts.MinutesSum += minutes

		if prov.Covered() {
			ts.RatedCount++
			ts.RatedMinutes += minutes
			continue
		}
		if prov == Fallback {
			ts.FallbackMinutes += minutes
		}
		ts.UncoveredIDs = append(ts.UncoveredIDs, r.AthleteID)
		ts.UncoveredNames = append(ts.UncoveredNames, r.AthleteName)
	}
	if ts.MinutesSum > 0 {
		ts.CoverageRate = ts.RatedMinutes / ts.MinutesSum
	}
	ts.CoverageOK = ts.MinutesSum > 0 && ts.CoverageRate >= a.threshold
	return ts
}

// BuildFeatures joins the home and away rows of each match into
// home-minus-away differentials. Matches missing either side are dropped.
// Order follows the first appearance of each match in strengths.
func BuildFeatures(strengths []model.TeamStrength) []model.MatchFeatures {
	type pair struct {
		home, away *model.TeamStrength
	}
	pairs := make(map[string]*pair)
	var order []string
	for i := range strengths {
		s := &strengths[i]
		p, ok := pairs[s.MatchKey]
		if !ok {
			p = &pair{}
			pairs[s.MatchKey] = p
			order = append(order, s.MatchKey)
		}
		if s.Side == model.Home {
			p.home = s
		} else {
			p.away = s
		}
	}

	out := make([]model.MatchFeatures, 0, len(order))
	for _, key := range order {
		p := pairs[key]
		if p.home == nil || p.away == nil {
			continue
		}
		out = append(out, model.MatchFeatures{
			MatchKey:       key,
			Season:         p.home.Season,
			Date:           p.home.Date,
			HomeTeam:       p.home.Team,
			AwayTeam:       p.away.Team,
			DiffTotal:      p.home.Total - p.away.Total,
			DiffAttack:     p.home.Attack - p.away.Attack,
			DiffDefense:    p.home.Defense - p.away.Defense,
			HomeTotal:      p.home.Total,
			AwayTotal:      p.away.Total,
			BothCoverageOK: p.home.CoverageOK && p.away.CoverageOK,
		})
	}
	return out
}
