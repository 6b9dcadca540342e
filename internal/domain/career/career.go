// Package career collapses seasonal ratings into one recency-weighted
// lifetime rating per athlete.
package career

import (
	"math"
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
)

const defaultDecay = 0.85

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithDecay sets the per-season recency decay in (0, 1].
func WithDecay(d float64) Option {
	return func(a *Aggregator) {
		if d > 0 && d <= 1 {
			a.decay = d
		}
	}
}

// Aggregator builds career ratings.
type Aggregator struct {
	decay float64
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{decay: defaultDecay}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weight is minutes * decay^(latest-season).
func (a *Aggregator) Weight(minutes float64, season, latest int) float64 {
	if minutes <= 0 {
		return 0
	}
	return minutes * math.Pow(a.decay, float64(latest-season))
}

type acc struct {
	name       string
	nameSeason int
	minutes    float64
	seasons    map[int]struct{}
	w          float64
	attack     float64
	defense    float64
	total      float64
	pct        float64
	peakTotal  float64
	peakPct    float64
}

// Aggregate combines the eligible seasons of every athlete. Recency is
// measured against the latest eligible season in the whole table. Athletes
// whose weights sum to zero are left out. The result is sorted by career
// total descending, then athlete id.
func (a *Aggregator) Aggregate(ratings []model.SeasonalRating) []model.CareerRating {
	latest := math.MinInt
	for _, r := range ratings {
		if eligible(r) && r.Season > latest {
			latest = r.Season
		}
	}

	accs := make(map[string]*acc)
	for _, r := range ratings {
		if !eligible(r) {
			continue
		}
		c, ok := accs[r.AthleteID]
		if !ok {
			c = &acc{
				seasons:   make(map[int]struct{}),
				peakTotal: math.Inf(-1),
				peakPct:   math.Inf(-1),
			}
			accs[r.AthleteID] = c
		}
		if r.Season >= c.nameSeason || c.name == "" {
			c.name, c.nameSeason = r.Name, r.Season
		}
		c.minutes += r.Minutes
		c.seasons[r.Season] = struct{}{}

		pct := 0.0
		if r.PercentileRank != nil {
			pct = *r.PercentileRank
		}
		w := a.Weight(r.Minutes, r.Season, latest)
		c.w += w
		c.attack += w * *r.AttackShrunk
		c.defense += w * *r.DefenseShrunk
		c.total += w * *r.TotalShrunk
		c.pct += w * pct
		c.peakTotal = math.Max(c.peakTotal, *r.TotalShrunk)
		c.peakPct = math.Max(c.peakPct, pct)
	}

	out := make([]model.CareerRating, 0, len(accs))
	for id, c := range accs {
		if c.w <= 0 {
			continue
		}
		out = append(out, model.CareerRating{
			AthleteID:        id,
			Name:             c.name,
			TotalMinutes:     c.minutes,
			SeasonsPlayed:    len(c.seasons),
			CareerAttack:     c.attack / c.w,
			CareerDefense:    c.defense / c.w,
			CareerTotal:      c.total / c.w,
			CareerPercentile: c.pct / c.w,
			PeakTotal:        c.peakTotal,
			PeakPercentile:   c.peakPct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CareerTotal != out[j].CareerTotal {
			return out[i].CareerTotal > out[j].CareerTotal
		}
		return out[i].AthleteID < out[j].AthleteID
	})
	return out
}

func eligible(r model.SeasonalRating) bool {
	return r.Eligible && r.AttackShrunk != nil && r.DefenseShrunk != nil && r.TotalShrunk != nil
}
