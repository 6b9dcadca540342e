// Package dedupe drops repeated records on ingest, keyed by a stable id such
// as the match key.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/squadrank/internal/domain/model"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper keeps every key of one ingest pass in a map.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Filter keeps the first item for every key and returns the keys of the
// items it dropped, in input order.
func Filter[T any](ctx context.Context, d Deduper, items []T, key func(T) string) ([]T, []string) {
	kept := make([]T, 0, len(items))
	var dropped []string
	for _, it := range items {
		k := key(it)
		if d.SeenAndRecord(ctx, k) {
			dropped = append(dropped, k)
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}

// Matches drops repeated fixtures by match key, keeping the first row.
func Matches(ctx context.Context, matches []model.Match) ([]model.Match, []string) {
	return Filter(ctx, NewInMemoryDeduper(), matches, model.Match.Key)
}

// SeasonStats drops repeated (athlete, season, team) statistics rows.
func SeasonStats(ctx context.Context, rows []model.SeasonStats) ([]model.SeasonStats, []string) {
	return Filter(ctx, NewInMemoryDeduper(), rows, func(r model.SeasonStats) string {
		return model.SeasonKey(r.AthleteID, r.Season, r.Team)
	})
}

// PlayerSeasons drops repeated (athlete, season, team) appearance rows so an
// athlete enters a roster pool once.
func PlayerSeasons(ctx context.Context, rows []model.PlayerSeason) ([]model.PlayerSeason, []string) {
	return Filter(ctx, NewInMemoryDeduper(), rows, func(p model.PlayerSeason) string {
		return model.SeasonKey(p.AthleteID, p.Season, p.Team)
	})
}
