// Package form computes each team's recent results going into a match.
package form

import (
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
)

const defaultWindow = 5

// Points per result.
const (
	PointsWin  = 3
	PointsDraw = 1
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWindow sets how many previous matches are averaged.
func WithWindow(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.window = n
		}
	}
}

// WithNormalizer canonicalizes team labels so aliases share one history.
func WithNormalizer(n *teamname.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.norm = n
		}
	}
}

// Builder computes rolling form.
type Builder struct {
	window int
	norm   *teamname.Normalizer
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{window: defaultWindow, norm: teamname.NewNormalizer(nil)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot is a team's average points and goal difference over its last
// window matches. Both are 0 before its first result.
type Snapshot struct {
	Points   float64
	GoalDiff float64
	Matches  int
}

// Pair holds both sides' form going into a match.
type Pair struct {
	Home Snapshot
	Away Snapshot
}

type result struct {
	points float64
	gd     float64
}

// Compute walks matches by date then key and records each side's form
// before the match. Only finished matches add to a team's history;
// scheduled ones still get a snapshot.
func (b *Builder) Compute(matches []model.Match) map[string]Pair {
	ordered := make([]model.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].Key() < ordered[j].Key()
	})

	hist := make(map[string][]result)
	out := make(map[string]Pair, len(ordered))
	for _, m := range ordered {
		home := b.norm.Canonical(m.HomeTeam)
		away := b.norm.Canonical(m.AwayTeam)
		out[m.Key()] = Pair{Home: b.snapshot(hist[home]), Away: b.snapshot(hist[away])}
		if !m.Finished() {
			continue
		}
		hp, ap := points(m)
		gd := float64(m.HomeScore - m.AwayScore)
		hist[home] = append(hist[home], result{points: hp, gd: gd})
		hist[away] = append(hist[away], result{points: ap, gd: -gd})
	}
	return out
}

func (b *Builder) snapshot(h []result) Snapshot {
	if len(h) > b.window {
		h = h[len(h)-b.window:]
	}
	if len(h) == 0 {
		return Snapshot{}
	}
	var s Snapshot
	for _, r := range h {
		s.Points += r.points
		s.GoalDiff += r.gd
	}
	s.Matches = len(h)
	s.Points /= float64(len(h))
	s.GoalDiff /= float64(len(h))
	return s
}

func points(m model.Match) (home, away float64) {
	switch {
	case m.HomeScore > m.AwayScore:
		return PointsWin, 0
	case m.HomeScore < m.AwayScore:
		return 0, PointsWin
	default:
		return PointsDraw, PointsDraw
	}
}

// Apply fills the form columns of features in place.
func (b *Builder) Apply(features []model.MatchFeatures, matches []model.Match) {
	pairs := b.Compute(matches)
	for i := range features {
		f := &features[i]
		p, ok := pairs[f.MatchKey]
		if !ok {
			continue
		}
		f.HomeFormPoints = p.Home.Points
		f.AwayFormPoints = p.Away.Points
		f.HomeFormGoals = p.Home.GoalDiff
		f.AwayFormGoals = p.Away.GoalDiff
		f.DiffFormPoints = p.Home.Points - p.Away.Points
		f.DiffFormGoals = p.Home.GoalDiff - p.Away.GoalDiff
	}
}
