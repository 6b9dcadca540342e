package postgres

import (
	"strings"

	"github.com/google/uuid"

	"github.com/okian/squadrank/internal/adapters/tables"
)

type ddl struct {
	name string
	ddl  string
}

var tableDDL = []ddl{
	{"lineups", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	match_key TEXT NOT NULL,
	season INT NOT NULL,
	match_date DATE,
	team TEXT NOT NULL,
	player_id TEXT NOT NULL,
	player_name TEXT,
	expected_minutes DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL
)`},
	{"rating_history", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	match_key TEXT NOT NULL,
	player_id TEXT NOT NULL,
	team TEXT,
	match_date DATE,
	rating DOUBLE PRECISION NOT NULL
)`},
	{"seasonal_ratings", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	player_id TEXT NOT NULL,
	player_name TEXT,
	season INT NOT NULL,
	team TEXT,
	role TEXT,
	minutes DOUBLE PRECISION,
	eligible BOOLEAN NOT NULL,
	total_raw DOUBLE PRECISION,
	total_shrunk DOUBLE PRECISION,
	percentile_rank DOUBLE PRECISION,
	score_delta DOUBLE PRECISION
)`},
	{"career_ratings", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	player_id TEXT NOT NULL,
	player_name TEXT,
	total_minutes DOUBLE PRECISION,
	seasons_played INT,
	career_total DOUBLE PRECISION,
	career_percentile DOUBLE PRECISION,
	peak_total DOUBLE PRECISION
)`},
	{"team_strength", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	source TEXT NOT NULL,
	match_key TEXT NOT NULL,
	team TEXT NOT NULL,
	side TEXT NOT NULL,
	total DOUBLE PRECISION,
	coverage_rate DOUBLE PRECISION,
	coverage_ok BOOLEAN,
	uncovered_ids TEXT
)`},
	{"match_features", `CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	source TEXT NOT NULL,
	match_key TEXT NOT NULL,
	diff_total DOUBLE PRECISION,
	diff_attack DOUBLE PRECISION,
	diff_defense DOUBLE PRECISION,
	both_coverage_ok BOOLEAN,
	diff_form_points DOUBLE PRECISION,
	diff_form_goals DOUBLE PRECISION
)`},
}

type batch struct {
	name string
	cols []string
	rows [][]any
}

// rowsOf flattens run outputs into insert batches. Nullable ratings stay nil.
func rowsOf(runID uuid.UUID, out tables.Outputs) []batch {
	id := runID.String()

	lineups := batch{name: "lineups", cols: []string{"run_id", "match_key", "season", "match_date", "team", "player_id", "player_name", "expected_minutes", "source"}}
	for _, r := range out.Lineup {
		lineups.rows = append(lineups.rows, []any{id, r.MatchKey, r.Season, r.Date, r.Team, r.AthleteID, r.AthleteName, r.ExpectedMinutes, r.Source})
	}

	history := batch{name: "rating_history", cols: []string{"run_id", "match_key", "player_id", "team", "match_date", "rating"}}
	for _, r := range out.History {
		history.rows = append(history.rows, []any{id, r.MatchKey, r.AthleteID, r.Team, r.Date, r.Rating})
	}

	seasonal := batch{name: "seasonal_ratings", cols: []string{"run_id", "player_id", "player_name", "season", "team", "role", "minutes", "eligible", "total_raw", "total_shrunk", "percentile_rank", "score_delta"}}
	for _, r := range out.Seasonal {
		seasonal.rows = append(seasonal.rows, []any{id, r.AthleteID, r.Name, r.Season, r.Team, r.Role, r.Minutes, r.Eligible, r.TotalRaw, r.TotalShrunk, r.PercentileRank, r.ScoreDelta})
	}

	career := batch{name: "career_ratings", cols: []string{"run_id", "player_id", "player_name", "total_minutes", "seasons_played", "career_total", "career_percentile", "peak_total"}}
	for _, r := range out.Career {
		career.rows = append(career.rows, []any{id, r.AthleteID, r.Name, r.TotalMinutes, r.SeasonsPlayed, r.CareerTotal, r.CareerPercentile, r.PeakTotal})
	}

	strength := batch{name: "team_strength", cols: []string{"run_id", "source", "match_key", "team", "side", "total", "coverage_rate", "coverage_ok", "uncovered_ids"}}
	for _, set := range out.Strengths {
		for _, r := range set.Rows {
			strength.rows = append(strength.rows, []any{id, set.Source, r.MatchKey, r.Team, string(r.Side), r.Total, r.CoverageRate, r.CoverageOK, strings.Join(r.UncoveredIDs, ";")})
		}
	}

	features := batch{name: "match_features", cols: []string{"run_id", "source", "match_key", "diff_total", "diff_attack", "diff_defense", "both_coverage_ok", "diff_form_points", "diff_form_goals"}}
	for _, set := range out.Features {
		for _, r := range set.Rows {
			features.rows = append(features.rows, []any{id, set.Source, r.MatchKey, r.DiffTotal, r.DiffAttack, r.DiffDefense, r.BothCoverageOK, r.DiffFormPoints, r.DiffFormGoals})
		}
	}

	return []batch{lineups, history, seasonal, career, strength, features}
}
