// Package config defines the engine configuration and its loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Every tunable constant of the engine lives here; packages receive
//   them through their functional options.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/squadrank/internal/domain/seasonal"
	"github.com/okian/squadrank/internal/domain/teamname"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// DataDir holds the input tables.
	DataDir string `koanf:"data_dir"`

	// OutDir receives the output tables.
	OutDir string `koanf:"out_dir"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`

	// PostgresDSN, when set, enables the Postgres sink.
	PostgresDSN string `koanf:"postgres_dsn"`

	// PostgresSchema qualifies the sink tables.
	PostgresSchema string `koanf:"postgres_schema"`

	// BoardSize is the number of top rated athletes logged after a run.
	BoardSize int `koanf:"board_size"`

	// BoardWatch lists athlete ids whose board rank is logged after a run.
	BoardWatch []string `koanf:"board_watch"`

	// TeamMatch selects side matching of roster labels: exact or loose.
	TeamMatch string `koanf:"team_match"`

	// TeamAliases maps feed spellings to canonical team labels.
	TeamAliases map[string]string `koanf:"team_aliases"`

	Roster   RosterConfig   `koanf:"roster"`
	Elo      EloConfig      `koanf:"elo"`
	Seasonal SeasonalConfig `koanf:"seasonal"`
	Career   CareerConfig   `koanf:"career"`
	Strength StrengthConfig `koanf:"strength"`
	Form     FormConfig     `koanf:"form"`
}

// RosterConfig tunes the roster allocator.
type RosterConfig struct {
	TeamBudget         float64 `koanf:"team_budget"`
	CapMinutes         float64 `koanf:"cap_minutes"`
	MinSize            int     `koanf:"min_size"`
	MaxSize            int     `koanf:"max_size"`
	CumulativeFraction float64 `koanf:"cumulative_fraction"`
	MaxIterations      int     `koanf:"max_iterations"`
	Tolerance          float64 `koanf:"tolerance"`
	SumTolerance       float64 `koanf:"sum_tolerance"`
}

// EloConfig tunes the sequential rating tracker and its tuning grid.
type EloConfig struct {
	KFactor          float64 `koanf:"k_factor"`
	HomeAdvantage    float64 `koanf:"home_advantage"`
	Scale            float64 `koanf:"scale"`
	StartRating      float64 `koanf:"start_rating"`
	MarginMultiplier bool    `koanf:"margin_multiplier"`
	MarginWeight     float64 `koanf:"margin_weight"`
	MarginCap        int     `koanf:"margin_cap"`
	BoardMinMatches  int     `koanf:"board_min_matches"`

	// Tuning grid axes; empty means the built-in grid.
	TuneKFactors []float64 `koanf:"tune_k_factors"`
	TuneHomeAdv  []float64 `koanf:"tune_home_advantages"`
}

// SeasonalConfig tunes the seasonal normalizer.
type SeasonalConfig struct {
	ShrinkMinutes float64 `koanf:"shrink_minutes"`
	MinMinutes    float64 `koanf:"min_minutes"`
	Concurrency   int     `koanf:"concurrency"`

	// RoleWeights replaces the built-in weights of the roles it names,
	// keyed by role label (forward, midfielder, defender, goalkeeper).
	RoleWeights map[string]RoleWeights `koanf:"role_weights"`
}

// RoleWeights scales the attack, defense and negative buckets of one role.
// Overrides reweight single statistics by name.
type RoleWeights struct {
	Attack    float64            `koanf:"attack"`
	Defense   float64            `koanf:"defense"`
	Negative  float64            `koanf:"negative"`
	Overrides map[string]float64 `koanf:"overrides"`
}

// CareerConfig tunes the career aggregator.
type CareerConfig struct {
	Decay float64 `koanf:"decay"`
}

// StrengthConfig tunes the team strength aggregator.
type StrengthConfig struct {
	MinutesPerUnit    float64 `koanf:"minutes_per_unit"`
	CoverageThreshold float64 `koanf:"coverage_threshold"`
}

// FormConfig tunes the rolling form features.
type FormConfig struct {
	Window int `koanf:"window"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		DataDir:        "data",
		OutDir:         "out",
		PostgresSchema: "squadrank",
		BoardSize:      10,
		TeamMatch:      teamname.ModeExact,
		TeamAliases:    teamname.DefaultAliases(),
		Roster: RosterConfig{
			TeamBudget:         990,
			CapMinutes:         90,
			MinSize:            11,
			MaxSize:            15,
			CumulativeFraction: 0.75,
			MaxIterations:      50,
			Tolerance:          1e-6,
			SumTolerance:       0.5,
		},
		Elo: EloConfig{
			KFactor:       15,
			HomeAdvantage: 20,
			Scale:         400,
			StartRating:   1500,
			MarginWeight:  0.5,
			MarginCap:     3,
		},
		Seasonal: SeasonalConfig{
			ShrinkMinutes: 450,
			MinMinutes:    450,
		},
		Career: CareerConfig{
			Decay: 0.85,
		},
		Strength: StrengthConfig{
			MinutesPerUnit:    90,
			CoverageThreshold: 0.80,
		},
		Form: FormConfig{
			Window: 5,
		},
	}
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(v, "; "))
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold.
func (v ValidationErrors) Unwrap() error { return ErrInvalidConfig }

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var v ValidationErrors
	check := func(ok bool, format string, args ...any) {
		if !ok {
			v = append(v, fmt.Sprintf(format, args...))
		}
	}
	positive := func(name string, x float64) {
		check(x > 0 && !math.IsInf(x, 0), "%s must be positive, got %v", name, x)
	}

	check(strings.TrimSpace(c.DataDir) != "", "data_dir must not be empty")
	check(strings.TrimSpace(c.OutDir) != "", "out_dir must not be empty")
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format must be text or json, got %q", c.LogFormat)
	check(c.TeamMatch == teamname.ModeExact || c.TeamMatch == teamname.ModeLoose,
		"team_match must be %s or %s, got %q", teamname.ModeExact, teamname.ModeLoose, c.TeamMatch)
	check(c.BoardSize >= 0, "board_size must not be negative")

	r := c.Roster
	positive("roster.team_budget", r.TeamBudget)
	positive("roster.cap_minutes", r.CapMinutes)
	check(r.MinSize > 0 && r.MaxSize >= r.MinSize, "roster sizes must satisfy 0 < min_size <= max_size, got %d..%d", r.MinSize, r.MaxSize)
	check(r.CumulativeFraction > 0 && r.CumulativeFraction <= 1, "roster.cumulative_fraction must be in (0, 1], got %v", r.CumulativeFraction)
	check(r.MaxIterations > 0, "roster.max_iterations must be positive")
	positive("roster.tolerance", r.Tolerance)
	positive("roster.sum_tolerance", r.SumTolerance)

	e := c.Elo
	positive("elo.k_factor", e.KFactor)
	check(e.HomeAdvantage >= 0, "elo.home_advantage must not be negative")
	positive("elo.scale", e.Scale)
	check(e.MarginWeight >= 0, "elo.margin_weight must not be negative")
	check(e.MarginCap >= 1, "elo.margin_cap must be at least 1")
	check(e.BoardMinMatches >= 0, "elo.board_min_matches must not be negative")
	for _, k := range e.TuneKFactors {
		positive("elo.tune_k_factors", k)
	}
	for _, h := range e.TuneHomeAdv {
		check(h >= 0, "elo.tune_home_advantages must not be negative, got %v", h)
	}

	positive("seasonal.shrink_minutes", c.Seasonal.ShrinkMinutes)
	check(c.Seasonal.MinMinutes >= 0, "seasonal.min_minutes must not be negative")
	check(c.Seasonal.Concurrency >= 0, "seasonal.concurrency must not be negative")
	for label, w := range c.Seasonal.RoleWeights {
		check(seasonal.ParseRole(label) != seasonal.RoleUnknown, "seasonal.role_weights: unknown role %q", label)
		check(w.Attack >= 0 && w.Defense >= 0 && w.Negative >= 0,
			"seasonal.role_weights.%s: bucket scales must not be negative", label)
	}

	check(c.Career.Decay > 0 && c.Career.Decay <= 1, "career.decay must be in (0, 1], got %v", c.Career.Decay)

	positive("strength.minutes_per_unit", c.Strength.MinutesPerUnit)
	check(c.Strength.CoverageThreshold >= 0 && c.Strength.CoverageThreshold <= 1,
		"strength.coverage_threshold must be in [0, 1], got %v", c.Strength.CoverageThreshold)

	check(c.Form.Window > 0, "form.window must be positive")

	if len(v) > 0 {
		return v
	}
	return nil
}
