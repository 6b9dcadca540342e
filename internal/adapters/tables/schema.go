// Package tables reads the engine's input tables and writes its output tables
// as CSV files.
package tables

// Input file names, relative to the data directory.
const (
	MatchesFile       = "matches.csv"
	PlayerSeasonsFile = "player_seasons.csv"
	SeasonStatsFile   = "player_stats.csv"
)

// Output file names, relative to the output directory.
const (
	LineupFile          = "assumed_lineup.csv"
	RollingRatingsFile  = "player_ratings_rolling.csv"
	SeasonalRatingsFile = "player_ratings_seasonal.csv"
	CareerRatingsFile   = "player_ratings_career.csv"
	TeamStrengthFile    = "match_team_strength.csv"
	MatchFeaturesFile   = "match_features.csv"
)

// Input columns.
const (
	colSeason     = "season"
	colDate       = "date"
	colHomeTeam   = "home_team"
	colAwayTeam   = "away_team"
	colHomeScore  = "home_score"
	colAwayScore  = "away_score"
	colStatus     = "status"
	colPlayerID   = "player_id"
	colPlayerName = "player_name"
	colTeam       = "team"
	colMinutes    = "minutes"
	colRole       = "role"
	colGames      = "games_played"
)

var (
	matchColumns        = []string{colSeason, colDate, colHomeTeam, colAwayTeam, colHomeScore, colAwayScore}
	playerSeasonColumns = []string{colPlayerID, colTeam, colSeason, colMinutes}
	seasonStatsColumns  = []string{colPlayerID, colTeam, colSeason, colMinutes}

	// identity columns of the stats table; every other column is a statistic.
	statsIdentity = map[string]bool{
		colPlayerID: true, colPlayerName: true, colTeam: true, colSeason: true,
		colRole: true, colMinutes: true, colGames: true,
	}
)

var (
	lineupHeader = []string{"match_key", "season", "date", "team", "player_id", "player_name", "expected_minutes", "source"}

	rollingHeader = []string{"match_key", "player_id", "team", "date", "rating"}

	seasonalHeader = []string{
		"player_id", "player_name", "season", "team", "role", "minutes", "eligible",
		"attack_raw", "defense_raw", "negative_raw", "total_raw",
		"attack_shrunk", "defense_shrunk", "total_shrunk", "percentile_rank",
		"prev_season_score", "score_delta",
	}

	careerHeader = []string{
		"player_id", "player_name", "total_minutes", "seasons_played",
		"career_attack", "career_defense", "career_total", "career_percentile",
		"peak_total", "peak_percentile",
	}

	strengthHeader = []string{
		"source", "match_key", "season", "date", "team", "side", "opponent",
		"attack", "defense", "total", "roster_count", "minutes_sum",
		"rated_count", "rated_minutes", "fallback_minutes", "coverage_rate", "coverage_ok",
		"uncovered_ids", "uncovered_names",
	}

	featuresHeader = []string{
		"source", "match_key", "season", "date", "home_team", "away_team",
		"diff_total", "diff_attack", "diff_defense", "home_total", "away_total", "both_coverage_ok",
		"home_form_points", "away_form_points", "home_form_goals", "away_form_goals",
		"diff_form_points", "diff_form_goals",
	}
)
