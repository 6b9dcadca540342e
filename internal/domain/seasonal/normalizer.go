// Package seasonal turns raw per-season statistics into role-normalized,
// minutes-shrunk performance scores.
package seasonal

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Default normalization constants.
const (
	defaultShrinkMinutes = 450.0
	defaultMinMinutes    = 450.0
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithShrinkMinutes sets M in the shrink factor minutes/(minutes+M).
func WithShrinkMinutes(m float64) Option {
	return func(n *Normalizer) {
		if m >= 0 {
			n.shrinkMinutes = m
		}
	}
}

// WithMinMinutes sets the eligibility threshold.
func WithMinMinutes(m float64) Option {
	return func(n *Normalizer) {
		if m >= 0 {
			n.minMinutes = m
		}
	}
}

// WithWeights replaces the role weight table.
func WithWeights(w map[Role]Weights) Option {
	return func(n *Normalizer) {
		if len(w) > 0 {
			n.weights = w
		}
	}
}

// WithConcurrency bounds the number of cohorts scored at once.
func WithConcurrency(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// WithLogger sets the logger used to report unknown role labels.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}

// Normalizer scores season statistics per (season, role) cohort.
type Normalizer struct {
	shrinkMinutes float64
	minMinutes    float64
	weights       map[Role]Weights
	concurrency   int
	log           logger.Logger
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		shrinkMinutes: defaultShrinkMinutes,
		minMinutes:    defaultMinMinutes,
		weights:       DefaultWeights(),
		concurrency:   runtime.GOMAXPROCS(0),
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Result is a scored table plus cohort bookkeeping.
type Result struct {
	// Ratings are sorted by season then athlete id.
	Ratings      []model.SeasonalRating
	Cohorts      int
	Eligible     int
	UnknownRoles []string
}

type cohortKey struct {
	season int
	role   string
}

// Normalize scores every row. Cohorts are independent and run concurrently;
// season-over-season deltas are filled in after they are merged.
func (n *Normalizer) Normalize(ctx context.Context, rows []model.SeasonStats) (Result, error) {
	groups := make(map[cohortKey][]model.SeasonStats)
	unknown := make(map[string]struct{})
	for _, r := range rows {
		label := cohortLabel(r.Role)
		if ParseRole(r.Role) == RoleUnknown {
			if _, seen := unknown[label]; !seen {
				unknown[label] = struct{}{}
				n.log.Warn(ctx, "unknown role, scoring without role weights",
					logger.String("role", r.Role))
			}
		}
		k := cohortKey{season: r.Season, role: label}
		groups[k] = append(groups[k], r)
	}

	keys := make([]cohortKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].season != keys[j].season {
			return keys[i].season < keys[j].season
		}
		return keys[i].role < keys[j].role
	})

	scored := make([][]model.SeasonalRating, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("cohort %d/%s: %w", k.season, k.role, err)
			}
			scored[i] = n.scoreCohort(k.role, groups[k])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Cohorts: len(keys)}
	for _, s := range scored {
		res.Ratings = append(res.Ratings, s...)
	}
	sort.SliceStable(res.Ratings, func(i, j int) bool {
		a, b := res.Ratings[i], res.Ratings[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.AthleteID < b.AthleteID
	})
	fillDeltas(res.Ratings)

	for _, r := range res.Ratings {
		if r.Eligible {
			res.Eligible++
		}
	}
	for label := range unknown {
		res.UnknownRoles = append(res.UnknownRoles, label)
	}
	sort.Strings(res.UnknownRoles)

	n.log.Debug(ctx, "seasonal ratings scored",
		logger.Int("rows", len(res.Ratings)),
		logger.Int("cohorts", res.Cohorts),
		logger.Int("eligible", res.Eligible))
	return res, nil
}

// scoreCohort scores one (season, role) group.
func (n *Normalizer) scoreCohort(role string, rows []model.SeasonStats) []model.SeasonalRating {
	size := len(rows)
	stats := make([]map[string]float64, size)
	for i, r := range rows {
		stats[i] = DerivePerGame(r.Stats, r.GamesPlayed)
	}

	attack := make([]float64, size)
	defense := make([]float64, size)
	negative := make([]float64, size)
	zs := make(map[string][]float64)
	values := make([]float64, size)
	present := make([]bool, size)
	for _, feat := range Features() {
		for i := range rows {
			values[i], present[i] = stats[i][feat]
		}
		z := ZScores(values, present)
		zs[feat] = z
		var dst []float64
		switch BucketOf(feat) {
		case BucketAttack:
			dst = attack
		case BucketDefense:
			dst = defense
		case BucketNegative:
			dst = negative
		}
		for i := range z {
			dst[i] += z[i]
		}
	}

	if w, ok := n.weights[ParseRole(role)]; ok && ParseRole(role) != RoleUnknown {
		for i := range rows {
			attack[i] *= w.Attack
			defense[i] *= w.Defense
			negative[i] *= w.Negative
		}
		for feat, wt := range w.Overrides {
			z, ok := zs[feat]
			if !ok {
				continue
			}
			var dst []float64
			switch BucketOf(feat) {
			case BucketAttack:
				dst = attack
			case BucketDefense:
				dst = defense
			case BucketNegative:
				dst = negative
			default:
				continue
			}
			for i := range z {
				dst[i] += (wt - 1) * z[i]
			}
		}
	}

	out := make([]model.SeasonalRating, size)
	var eligibleIdx []int
	var eligibleTotals []float64
	for i, r := range rows {
		minutes := r.Minutes
		if minutes < 0 {
			minutes = 0
		}
		sr := model.SeasonalRating{
			AthleteID:   athleteKey(r),
			Name:        r.Name,
			Season:      r.Season,
			Team:        r.Team,
			Role:        role,
			Minutes:     minutes,
			Eligible:    minutes >= n.minMinutes,
			AttackRaw:   attack[i],
			DefenseRaw:  defense[i],
			NegativeRaw: negative[i],
			TotalRaw:    attack[i] + defense[i] - negative[i],
		}
		if sr.Eligible {
			f := n.shrink(minutes)
			sr.AttackShrunk = model.Float(sr.AttackRaw * f)
			sr.DefenseShrunk = model.Float(sr.DefenseRaw * f)
			sr.TotalShrunk = model.Float(sr.TotalRaw * f)
			eligibleIdx = append(eligibleIdx, i)
			eligibleTotals = append(eligibleTotals, *sr.TotalShrunk)
		}
		out[i] = sr
	}

	for j, p := range PercentileRanks(eligibleTotals) {
		out[eligibleIdx[j]].PercentileRank = model.Float(p)
	}
	return out
}

// Shrink returns the minutes shrink factor minutes/(minutes+M), 0 when the
// denominator is not positive.
func (n *Normalizer) Shrink(minutes float64) float64 { return n.shrink(minutes) }

func (n *Normalizer) shrink(minutes float64) float64 {
	d := minutes + n.shrinkMinutes
	if d <= 0 {
		return 0
	}
	return minutes / d
}

func athleteKey(r model.SeasonStats) string {
	if id := strings.TrimSpace(r.AthleteID); id != "" {
		return id
	}
	return strings.TrimSpace(r.Name)
}

// fillDeltas links each row to the athlete's most recent earlier eligible
// season. rows must be sorted by season.
func fillDeltas(rows []model.SeasonalRating) {
	type scored struct {
		season int
		total  float64
	}
	last := make(map[string]scored)
	for i := range rows {
		r := &rows[i]
		if prev, ok := last[r.AthleteID]; ok && prev.season < r.Season {
			r.PrevSeasonScore = model.Float(prev.total)
			if r.TotalShrunk != nil {
				r.ScoreDelta = model.Float(*r.TotalShrunk - prev.total)
			}
		}
		if r.TotalShrunk != nil {
			last[r.AthleteID] = scored{season: r.Season, total: *r.TotalShrunk}
		}
	}
}
