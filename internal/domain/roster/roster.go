// Package roster infers a plausible per-match roster for each team and the
// minutes every member is expected to play.
package roster

import (
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
)

// Default allocation constants: eleven outfield slots of ninety minutes.
const (
	defaultTeamBudget         = 990.0
	defaultCapMinutes         = 90.0
	defaultMinRoster          = 11
	defaultMaxRoster          = 15
	defaultCumulativeFraction = 0.75
	defaultMaxIterations      = 50
	defaultTolerance          = 1e-6
)

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithBudget sets the per-team minutes budget and the per-athlete cap.
func WithBudget(teamBudget, capMinutes float64) Option {
	return func(a *Allocator) {
		if teamBudget > 0 && capMinutes > 0 {
			a.teamBudget = teamBudget
			a.capMinutes = capMinutes
		}
	}
}

// WithRosterSize bounds the number of athletes selected per match.
func WithRosterSize(minSize, maxSize int) Option {
	return func(a *Allocator) {
		if minSize > 0 && maxSize >= minSize {
			a.minRoster = minSize
			a.maxRoster = maxSize
		}
	}
}

// WithCumulativeFraction sets the share of season minutes the roster must cover.
func WithCumulativeFraction(f float64) Option {
	return func(a *Allocator) {
		if f > 0 && f <= 1 {
			a.cumulativeFraction = f
		}
	}
}

// WithConvergence sets the iteration cap and overflow tolerance of the
// cap-and-redistribute loop.
func WithConvergence(maxIter int, tol float64) Option {
	return func(a *Allocator) {
		if maxIter > 0 {
			a.maxIterations = maxIter
		}
		if tol > 0 {
			a.tolerance = tol
		}
	}
}

// WithNormalizer canonicalizes team labels before pooling athletes.
func WithNormalizer(n *teamname.Normalizer) Option {
	return func(a *Allocator) {
		if n != nil {
			a.norm = n
		}
	}
}

// Allocator selects rosters and assigns expected minutes.
type Allocator struct {
	teamBudget         float64
	capMinutes         float64
	minRoster          int
	maxRoster          int
	cumulativeFraction float64
	maxIterations      int
	tolerance          float64
	norm               *teamname.Normalizer
}

// NewAllocator creates an Allocator with configuration options.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		teamBudget:         defaultTeamBudget,
		capMinutes:         defaultCapMinutes,
		minRoster:          defaultMinRoster,
		maxRoster:          defaultMaxRoster,
		cumulativeFraction: defaultCumulativeFraction,
		maxIterations:      defaultMaxIterations,
		tolerance:          defaultTolerance,
		norm:               teamname.NewNormalizer(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Member is one selected athlete with expected minutes.
type Member struct {
	Player          model.PlayerSeason
	ExpectedMinutes float64
}

// Allocation is the roster for one team-season.
type Allocation struct {
	Members    []Member
	Iterations int
	Converged  bool
	Feasible   bool
}

// Allocate selects the roster from a team-season pool and distributes the
// minutes budget across it.
func (a *Allocator) Allocate(pool []model.PlayerSeason) Allocation {
	selected := a.Select(pool)
	if len(selected) == 0 {
		return Allocation{Converged: true}
	}

	raw := make([]float64, len(selected))
	for i, p := range selected {
		raw[i] = p.Minutes
	}
	res := RedistributeWithCap(raw, a.capMinutes, a.teamBudget, a.maxIterations, a.tolerance)

	out := Allocation{
		Members:    make([]Member, len(selected)),
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Feasible:   res.Feasible,
	}
	for i, p := range selected {
		out.Members[i] = Member{Player: p, ExpectedMinutes: res.Minutes[i]}
	}
	return out
}

// Select sorts the pool by season minutes and keeps the smallest prefix that
// covers the configured share of the team's minutes, bounded by the roster
// size limits. Pools no larger than the minimum roster are kept whole.
func (a *Allocator) Select(pool []model.PlayerSeason) []model.PlayerSeason {
	sorted := make([]model.PlayerSeason, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := minutesOf(sorted[i]), minutesOf(sorted[j])
		if mi != mj {
			return mi > mj
		}
		return sorted[i].AthleteID < sorted[j].AthleteID
	})
	if len(sorted) <= a.minRoster {
		return sorted
	}

	total := 0.0
	for _, p := range sorted {
		total += minutesOf(p)
	}
	cutoff := a.cumulativeFraction * total

	k := len(sorted)
	cum := 0.0
	for i, p := range sorted {
		cum += minutesOf(p)
		if cum >= cutoff {
			k = i + 1
			break
		}
	}
	if k < a.minRoster {
		k = a.minRoster
	}
	if k > a.maxRoster {
		k = a.maxRoster
	}
	return sorted[:k]
}

func minutesOf(p model.PlayerSeason) float64 {
	if p.Minutes > 0 {
		return p.Minutes
	}
	return 0
}
