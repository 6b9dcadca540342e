package elo

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Grid is the K-factor by home-advantage search space.
type Grid struct {
	KFactors       []float64
	HomeAdvantages []float64
}

// DefaultGrid returns the standard search space.
func DefaultGrid() Grid {
	return Grid{
		KFactors:       []float64{10, 15, 20, 25, 30, 40},
		HomeAdvantages: []float64{20, 35, 50, 65, 80},
	}
}

// Size is the number of cells in the grid.
func (g Grid) Size() int { return len(g.KFactors) * len(g.HomeAdvantages) }

// Cell is the score of one parameter pair.
type Cell struct {
	KFactor       float64
	HomeAdvantage float64
	Brier         float64
	Processed     int
}

// TuneResult lists every cell in grid order and the best one.
type TuneResult struct {
	Cells []Cell
	Best  Cell
}

// Tune replays the history once per grid cell, each with its own State, and
// picks the pair with the lowest Brier loss. Cells that rated no match are
// never chosen. Ties keep the earlier cell in grid order. opts configure every
// replay; the grid's K-factor and home advantage override them.
func Tune(ctx context.Context, matches []model.Match, assignments []model.RosterAssignment, grid Grid, opts ...Option) (TuneResult, error) {
	if grid.Size() == 0 {
		return TuneResult{}, ErrEmptyGrid
	}

	cells := make([]Cell, 0, grid.Size())
	for _, k := range grid.KFactors {
		for _, h := range grid.HomeAdvantages {
			cells = append(cells, Cell{KFactor: k, HomeAdvantage: h})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range cells {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("tune K=%g HFA=%g: %w", cells[i].KFactor, cells[i].HomeAdvantage, err)
			}
			cellOpts := append(append([]Option(nil), opts...),
				WithKFactor(cells[i].KFactor),
				WithHomeAdvantage(cells[i].HomeAdvantage),
			)
			res := NewTracker(cellOpts...).Replay(matches, assignments)
			cells[i].Brier = res.Brier
			cells[i].Processed = res.Processed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TuneResult{}, err
	}

	out := TuneResult{Cells: cells}
	ranked := make([]int, 0, len(cells))
	for i, c := range cells {
		if c.Processed > 0 {
			ranked = append(ranked, i)
		}
	}
	if len(ranked) == 0 {
		return out, ErrNoPredictions
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return cells[ranked[a]].Brier < cells[ranked[b]].Brier
	})
	out.Best = cells[ranked[0]]
	return out, nil
}
