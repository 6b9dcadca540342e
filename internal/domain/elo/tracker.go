// Package elo maintains per-athlete Elo ratings over a chronological match
// history. Each match updates the athletes on both sides from the mean
// rating of their side.
package elo

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
)

// Default rating constants.
const (
	defaultKFactor       = 15.0
	defaultHomeAdvantage = 20.0
	defaultScale         = 400.0
	defaultStartRating   = 1500.0
	defaultMarginWeight  = 0.5
	defaultMarginCap     = 3
)

// Skip reasons reported on a Step.
const (
	SkipNoRoster  = "no_roster"
	SkipEmptySide = "empty_side"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithKFactor sets the update step size.
func WithKFactor(k float64) Option {
	return func(t *Tracker) {
		if k > 0 {
			t.kFactor = k
		}
	}
}

// WithHomeAdvantage sets the rating bonus added to the home side's mean.
// Zero is allowed.
func WithHomeAdvantage(hfa float64) Option {
	return func(t *Tracker) {
		if hfa >= 0 {
			t.homeAdvantage = hfa
		}
	}
}

// WithScale sets the logistic scale of the expected-score curve.
func WithScale(scale float64) Option {
	return func(t *Tracker) {
		if scale > 0 {
			t.scale = scale
		}
	}
}

// WithStartRating sets the rating of unseen athletes.
func WithStartRating(r float64) Option {
	return func(t *Tracker) {
		t.startRating = r
	}
}

// WithMarginMultiplier enables the goal-margin multiplier
// 1 + weight*(min(margin, capGoals) - 1) for decisive results.
func WithMarginMultiplier(weight float64, capGoals int) Option {
	return func(t *Tracker) {
		if weight >= 0 && capGoals >= 1 {
			t.marginEnabled = true
			t.marginWeight = weight
			t.marginCap = capGoals
		}
	}
}

// WithMatcher sets how roster team labels are assigned to a match side.
func WithMatcher(m *teamname.Matcher) Option {
	return func(t *Tracker) {
		if m != nil {
			t.matcher = m
		}
	}
}

// Tracker applies Elo updates. It carries parameters only; ratings live in
// the State handed to each call.
type Tracker struct {
	kFactor       float64
	homeAdvantage float64
	scale         float64
	startRating   float64
	marginEnabled bool
	marginWeight  float64
	marginCap     int
	matcher       *teamname.Matcher
}

// NewTracker creates a Tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		kFactor:       defaultKFactor,
		homeAdvantage: defaultHomeAdvantage,
		scale:         defaultScale,
		startRating:   defaultStartRating,
		marginWeight:  defaultMarginWeight,
		marginCap:     defaultMarginCap,
		matcher:       teamname.NewMatcher(nil, teamname.ModeExact),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewState returns an empty State seeded with the tracker's starting rating.
func (t *Tracker) NewState() *State {
	return NewState(t.startRating)
}

// Expected is the home side's expected score given both side strengths,
// home advantage already included.
func (t *Tracker) Expected(home, away float64) float64 {
	return 1 / (1 + math.Pow(10, (away-home)/t.scale))
}

// Multiplier returns the goal-margin multiplier for a match.
func (t *Tracker) Multiplier(m model.Match) float64 {
	if !t.marginEnabled {
		return 1
	}
	margin := m.GoalMargin()
	if margin < 1 {
		return 1
	}
	if margin > t.marginCap {
		margin = t.marginCap
	}
	return 1 + t.marginWeight*float64(margin-1)
}

// Step is the outcome of advancing one match.
type Step struct {
	MatchKey     string
	Processed    bool
	SkipReason   string
	History      []model.HistoryRow
	// Snapshot holds the ratings read for a match skipped with one empty
	// side. They are not history: nothing was updated.
	Snapshot     []model.HistoryRow
	HomeMean     float64
	AwayMean     float64
	ExpectedHome float64
	ActualHome   float64
	HomeDelta    float64
	AwayDelta    float64
	Excluded     int
}

// Advance rates one finished match against state. Every pre-match rating is
// read and recorded before any rating is written. A match whose roster is
// empty, or leaves either side without athletes, is skipped and state is left
// untouched. Roster rows matching neither side are excluded.
func (t *Tracker) Advance(state *State, m model.Match, roster []model.RosterAssignment) (Step, error) {
	if state == nil {
		return Step{}, ErrNilState
	}
	if !m.Finished() {
		return Step{}, fmt.Errorf("%s: %w", m.Key(), ErrMatchNotFinished)
	}
	step := Step{MatchKey: m.Key()}

	type entry struct {
		id     string
		rating float64
	}
	var home, away []entry
	history := make([]model.HistoryRow, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, r := range roster {
		if r.IsMissing() {
			continue
		}
		if _, dup := seen[r.AthleteID]; dup {
			continue
		}
		side, ok := t.matcher.Side(r.Team, m)
		if !ok {
			step.Excluded++
			continue
		}
		seen[r.AthleteID] = struct{}{}
		e := entry{id: r.AthleteID, rating: state.Get(r.AthleteID)}
		if side == model.Home {
			home = append(home, e)
		} else {
			away = append(away, e)
		}
		history = append(history, model.HistoryRow{
			MatchKey:  step.MatchKey,
			AthleteID: r.AthleteID,
			Team:      r.Team,
			Date:      m.Date,
			Rating:    e.rating,
		})
	}

	switch {
	case len(home) == 0 && len(away) == 0 && step.Excluded == 0:
		step.SkipReason = SkipNoRoster
		return step, nil
	case len(home) == 0 || len(away) == 0:
		step.SkipReason = SkipEmptySide
		step.Snapshot = history
		return step, nil
	}

	mean := func(es []entry) float64 {
		s := 0.0
		for _, e := range es {
			s += e.rating
		}
		return s / float64(len(es))
	}
	step.HomeMean = mean(home)
	step.AwayMean = mean(away)
	step.ExpectedHome = t.Expected(step.HomeMean+t.homeAdvantage, step.AwayMean)
	actualHome, actualAway := m.Outcome()
	step.ActualHome = actualHome

	k := t.kFactor * t.Multiplier(m)
	step.HomeDelta = k * (actualHome - step.ExpectedHome)
	step.AwayDelta = k * (actualAway - (1 - step.ExpectedHome))

	for _, e := range home {
		state.Set(e.id, e.rating+step.HomeDelta)
	}
	for _, e := range away {
		state.Set(e.id, e.rating+step.AwayDelta)
	}
	step.Processed = true
	step.History = history
	return step, nil
}

// Result is the outcome of a full replay.
type Result struct {
	History          []model.HistoryRow
	// Snapshots are the ratings carried into matches skipped for an empty
	// side, for consumers that still need the as-of-match value.
	Snapshots        []model.HistoryRow
	Final            *State
	Processed        int
	SkippedNoRoster  int
	SkippedEmptySide int
	// Brier is the mean squared error of the home expected score over
	// processed matches, 0 when none were processed.
	Brier float64
}

// Skipped is the total number of skipped matches.
func (r Result) Skipped() int { return r.SkippedNoRoster + r.SkippedEmptySide }

// Replay rates every finished match in chronological order, ties broken by
// match key, starting from a fresh State. Rosters are looked up by match key.
func (t *Tracker) Replay(matches []model.Match, assignments []model.RosterAssignment) Result {
	rosters := GroupByMatch(assignments)
	ordered := Chronological(matches)

	state := t.NewState()
	res := Result{Final: state}
	sq := 0.0
	for _, m := range ordered {
		step, err := t.Advance(state, m, rosters[m.Key()])
		if err != nil {
			continue
		}
		switch step.SkipReason {
		case SkipNoRoster:
			res.SkippedNoRoster++
			continue
		case SkipEmptySide:
			res.SkippedEmptySide++
			res.Snapshots = append(res.Snapshots, step.Snapshot...)
			continue
		}
		res.Processed++
		res.History = append(res.History, step.History...)
		d := step.ActualHome - step.ExpectedHome
		sq += d * d
	}
	if res.Processed > 0 {
		res.Brier = sq / float64(res.Processed)
	}
	return res
}

// GroupByMatch indexes roster rows by match key, preserving row order.
func GroupByMatch(rows []model.RosterAssignment) map[string][]model.RosterAssignment {
	out := make(map[string][]model.RosterAssignment)
	for _, r := range rows {
		out[r.MatchKey] = append(out[r.MatchKey], r)
	}
	return out
}

// Chronological returns the finished matches sorted by date then key.
func Chronological(matches []model.Match) []model.Match {
	out := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Finished() {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
