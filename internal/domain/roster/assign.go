package roster

import (
	"math"
	"sort"

	"github.com/okian/squadrank/internal/domain/model"
)

// Report summarizes an assignment run.
type Report struct {
	Matches        int
	Rosters        int
	MissingRosters int
	NotConverged   int
	Infeasible     int
	// Iterations holds the cap loop rounds of each distinct team-season roster.
	Iterations []int
}

type poolKey struct {
	season int
	team   string
}

// Assign builds the roster rows for both sides of every finished match.
// A side with no known athletes for the season yields one MISSING row.
// Rows are ordered by season, date, match key, team and expected minutes
// descending.
func (a *Allocator) Assign(matches []model.Match, players []model.PlayerSeason) ([]model.RosterAssignment, Report) {
	pools := make(map[poolKey][]model.PlayerSeason)
	for _, p := range players {
		k := poolKey{season: p.Season, team: a.norm.Canonical(p.Team)}
		pools[k] = append(pools[k], p)
	}

	cache := make(map[poolKey]Allocation)
	var (
		rows []model.RosterAssignment
		rep  Report
	)
	for _, m := range matches {
		if !m.Finished() {
			continue
		}
		rep.Matches++
		key := m.Key()
		for _, side := range []model.Side{model.Home, model.Away} {
			team := m.Team(side)
			pk := poolKey{season: m.Season, team: a.norm.Canonical(team)}

			alloc, ok := cache[pk]
			if !ok {
				alloc = a.Allocate(pools[pk])
				cache[pk] = alloc
				if len(alloc.Members) > 0 {
					rep.Iterations = append(rep.Iterations, alloc.Iterations)
					if !alloc.Converged {
						rep.NotConverged++
					}
					if !alloc.Feasible {
						rep.Infeasible++
					}
				}
			}

			if len(alloc.Members) == 0 {
				rep.MissingRosters++
				rows = append(rows, model.RosterAssignment{
					MatchKey:  key,
					Season:    m.Season,
					Date:      m.Date,
					Team:      team,
					AthleteID: model.MissingAthleteID,
					Source:    model.SourceMissing,
				})
				continue
			}

			rep.Rosters++
			for _, mem := range alloc.Members {
				rows = append(rows, model.RosterAssignment{
					MatchKey:        key,
					Season:          m.Season,
					Date:            m.Date,
					Team:            team,
					AthleteID:       mem.Player.AthleteID,
					AthleteName:     mem.Player.Name,
					ExpectedMinutes: mem.ExpectedMinutes,
					Source:          model.SourceCalculated,
				})
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i], rows[j]
		if ri.Season != rj.Season {
			return ri.Season < rj.Season
		}
		if !ri.Date.Equal(rj.Date) {
			return ri.Date.Before(rj.Date)
		}
		if ri.MatchKey != rj.MatchKey {
			return ri.MatchKey < rj.MatchKey
		}
		if ri.Team != rj.Team {
			return ri.Team < rj.Team
		}
		return ri.ExpectedMinutes > rj.ExpectedMinutes
	})
	return rows, rep
}

// Validation checks the minutes and size invariants of assigned rosters.
type Validation struct {
	Groups          int
	MinutesFailures int
	ShortRosters    int
	CapViolations   int
	AvgRosterSize   float64
}

// OK reports whether every group conserved its budget and respected the cap.
func (v Validation) OK() bool {
	return v.MinutesFailures == 0 && v.CapViolations == 0
}

// Validate groups non-missing rows by (match, team) and checks that each group
// sums to the budget within sumTol, that no row exceeds the cap by more than
// 1e-6, and counts rosters smaller than the allocator's minimum size.
func (a *Allocator) Validate(rows []model.RosterAssignment, sumTol float64) Validation {
	type group struct {
		minutes float64
		count   int
	}
	groups := make(map[[2]string]*group)
	var v Validation
	for _, r := range rows {
		if r.IsMissing() {
			continue
		}
		k := [2]string{r.MatchKey, r.Team}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.minutes += r.ExpectedMinutes
		g.count++
		if r.ExpectedMinutes > a.capMinutes+1e-6 {
			v.CapViolations++
		}
	}

	total := 0
	for _, g := range groups {
		v.Groups++
		total += g.count
		if math.Abs(g.minutes-a.teamBudget) > sumTol {
			v.MinutesFailures++
		}
		if g.count < a.minRoster {
			v.ShortRosters++
		}
	}
	if v.Groups > 0 {
		v.AvgRosterSize = float64(total) / float64(v.Groups)
	}
	return v
}
