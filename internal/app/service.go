// Package service runs the rating pipeline: roster inference, rolling and
// seasonal ratings, team strength and match features.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/squadrank/internal/adapters/repository"
	"github.com/okian/squadrank/internal/adapters/tables"
	"github.com/okian/squadrank/internal/config"
	"github.com/okian/squadrank/internal/domain/career"
	"github.com/okian/squadrank/internal/domain/dedupe"
	"github.com/okian/squadrank/internal/domain/elo"
	"github.com/okian/squadrank/internal/domain/form"
	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/roster"
	"github.com/okian/squadrank/internal/domain/seasonal"
	"github.com/okian/squadrank/internal/domain/strength"
	"github.com/okian/squadrank/internal/domain/teamname"
	"github.com/okian/squadrank/pkg/logger"
	"github.com/okian/squadrank/pkg/metrics"
)

// ErrNilConfig is returned by New when no configuration is given.
var ErrNilConfig = errors.New("nil config")

// Sink receives the outputs of a run, keyed by its run id.
type Sink interface {
	WriteRun(ctx context.Context, runID uuid.UUID, out tables.Outputs) error
}

// Report summarizes one run.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration

	Matches          int
	DuplicateMatches []string
	DuplicateStats   []string

	DuplicatePlayerSeasons []string

	Roster     roster.Report
	Validation roster.Validation

	EloProcessed        int
	EloSkippedNoRoster  int
	EloSkippedEmptySide int
	Brier               float64

	Cohorts      int
	Eligible     int
	UnknownRoles []string
	CareerRows   int

	// StrengthCoverage counts covered sides per rating source.
	StrengthCoverage map[string]int

	Board []repository.Entry
	// Watched holds the board rank of each configured athlete found on it.
	Watched []repository.Entry
}

// Service wires the domain stages from a Config.
type Service struct {
	cfg    *config.Config
	logger logger.Logger
	board  repository.Store
	sinks  []Sink
	now    func() time.Time

	norm    *teamname.Normalizer
	matcher *teamname.Matcher
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBoard replaces the rating board filled after each run.
func WithBoard(b repository.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.board = b
		}
	}
}

// WithSink adds a destination for run outputs. Sinks are written in order.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	s := &Service{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.board == nil {
		s.board = repository.NewTreapStore(repository.WithMinMatches(cfg.Elo.BoardMinMatches))
	}
	s.norm = teamname.NewNormalizer(cfg.TeamAliases)
	s.matcher = teamname.NewMatcher(s.norm, cfg.TeamMatch)
	return s, nil
}

// Board exposes the rating board filled by the last run.
func (s *Service) Board() repository.Store { return s.board }

// stage times fn and records it under name.
func (s *Service) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStageDuration(name, elapsed.Seconds())
	if err != nil {
		metrics.RecordErrorByComponent(name, "stage_failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Debug(ctx, "stage done", logger.String("stage", name), logger.Duration("elapsed", elapsed))
	return nil
}

func (s *Service) allocator() *roster.Allocator {
	r := s.cfg.Roster
	return roster.NewAllocator(
		roster.WithBudget(r.TeamBudget, r.CapMinutes),
		roster.WithRosterSize(r.MinSize, r.MaxSize),
		roster.WithCumulativeFraction(r.CumulativeFraction),
		roster.WithConvergence(r.MaxIterations, r.Tolerance),
		roster.WithNormalizer(s.norm),
	)
}

func (s *Service) eloOptions() []elo.Option {
	e := s.cfg.Elo
	opts := []elo.Option{
		elo.WithKFactor(e.KFactor),
		elo.WithHomeAdvantage(e.HomeAdvantage),
		elo.WithScale(e.Scale),
		elo.WithStartRating(e.StartRating),
		elo.WithMatcher(s.matcher),
	}
	if e.MarginMultiplier {
		opts = append(opts, elo.WithMarginMultiplier(e.MarginWeight, e.MarginCap))
	}
	return opts
}

// roleWeights is the built-in table with configured roles replaced.
func (s *Service) roleWeights() map[seasonal.Role]seasonal.Weights {
	w := seasonal.DefaultWeights()
	for label, rw := range s.cfg.Seasonal.RoleWeights {
		role := seasonal.ParseRole(label)
		if role == seasonal.RoleUnknown {
			continue
		}
		w[role] = seasonal.Weights{
			Attack:    rw.Attack,
			Defense:   rw.Defense,
			Negative:  rw.Negative,
			Overrides: rw.Overrides,
		}
	}
	return w
}

// Grid returns the configured tuning grid, falling back to the built-in axes.
func (s *Service) Grid() elo.Grid {
	g := elo.DefaultGrid()
	if len(s.cfg.Elo.TuneKFactors) > 0 {
		g.KFactors = s.cfg.Elo.TuneKFactors
	}
	if len(s.cfg.Elo.TuneHomeAdv) > 0 {
		g.HomeAdvantages = s.cfg.Elo.TuneHomeAdv
	}
	return g
}

// prepare removes duplicate rows and infers rosters. The player seasons of in
// are replaced by the deduplicated ones.
func (s *Service) prepare(ctx context.Context, in *tables.Inputs, rep *Report) ([]model.Match, []model.RosterAssignment, error) {
	var (
		matches []model.Match
		lineup  []model.RosterAssignment
	)
	err := s.stage(ctx, "dedupe", func() error {
		matches, rep.DuplicateMatches = dedupe.Matches(ctx, in.Matches)
		metrics.RecordMatchesIngested(len(matches))
		metrics.RecordMatchesDuplicate(len(rep.DuplicateMatches))
		for _, k := range rep.DuplicateMatches {
			s.logger.Warn(ctx, "duplicate match row dropped", logger.String("match_key", k))
		}
		in.PlayerSeasons, rep.DuplicatePlayerSeasons = dedupe.PlayerSeasons(ctx, in.PlayerSeasons)
		for _, k := range rep.DuplicatePlayerSeasons {
			s.logger.Warn(ctx, "duplicate player season row dropped", logger.String("season_key", k))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	rep.Matches = len(matches)

	err = s.stage(ctx, "roster", func() error {
		alloc := s.allocator()
		lineup, rep.Roster = alloc.Assign(matches, in.PlayerSeasons)
		rep.Validation = alloc.Validate(lineup, s.cfg.Roster.SumTolerance)
		metrics.RecordRosters(rep.Roster.Rosters, rep.Roster.MissingRosters, rep.Roster.Infeasible)
		for _, n := range rep.Roster.Iterations {
			metrics.RecordRosterIterations(n)
		}
		if !rep.Validation.OK() {
			s.logger.Warn(ctx, "roster validation failed",
				logger.Int("minutes_failures", rep.Validation.MinutesFailures),
				logger.Int("short_rosters", rep.Validation.ShortRosters),
				logger.Int("cap_violations", rep.Validation.CapViolations),
			)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return matches, lineup, nil
}

// Run executes every stage on in and returns the output tables. Outputs are
// handed to the configured sinks after the last stage.
func (s *Service) Run(ctx context.Context, in tables.Inputs) (tables.Outputs, Report, error) {
	rep := Report{
		RunID:            uuid.New(),
		StartedAt:        s.now(),
		StrengthCoverage: make(map[string]int),
	}
	started := time.Now()
	log := s.logger
	log.Info(ctx, "pipeline run starting",
		logger.String("run_id", rep.RunID.String()),
		logger.Int("matches", len(in.Matches)),
		logger.Int("player_seasons", len(in.PlayerSeasons)),
		logger.Int("stats_rows", len(in.SeasonStats)),
	)

	var out tables.Outputs
	matches, lineup, err := s.prepare(ctx, &in, &rep)
	if err != nil {
		return tables.Outputs{}, rep, err
	}
	out.Lineup = lineup

	var replay elo.Result
	err = s.stage(ctx, "elo", func() error {
		replay = elo.NewTracker(s.eloOptions()...).Replay(matches, lineup)
		metrics.RecordEloReplay(replay.Processed, replay.SkippedNoRoster, replay.SkippedEmptySide, replay.Brier)
		return nil
	})
	if err != nil {
		return tables.Outputs{}, rep, err
	}
	out.History = replay.History
	rep.EloProcessed = replay.Processed
	rep.EloSkippedNoRoster = replay.SkippedNoRoster
	rep.EloSkippedEmptySide = replay.SkippedEmptySide
	rep.Brier = replay.Brier

	err = s.stage(ctx, "seasonal", func() error {
		stats, dropped := dedupe.SeasonStats(ctx, in.SeasonStats)
		rep.DuplicateStats = dropped
		metrics.RecordStatsRowsIngested(len(stats))

		norm := seasonal.NewNormalizer(
			seasonal.WithShrinkMinutes(s.cfg.Seasonal.ShrinkMinutes),
			seasonal.WithMinMinutes(s.cfg.Seasonal.MinMinutes),
			seasonal.WithConcurrency(s.cfg.Seasonal.Concurrency),
			seasonal.WithWeights(s.roleWeights()),
			seasonal.WithLogger(log.Named("seasonal")),
		)
		res, err := norm.Normalize(ctx, stats)
		if err != nil {
			return err
		}
		out.Seasonal = res.Ratings
		rep.Cohorts = res.Cohorts
		rep.Eligible = res.Eligible
		rep.UnknownRoles = res.UnknownRoles
		metrics.UpdateSeasonalRatings(len(res.Ratings), res.Eligible)
		metrics.RecordUnknownRoles(len(res.UnknownRoles))
		return nil
	})
	if err != nil {
		return tables.Outputs{}, rep, err
	}

	err = s.stage(ctx, "career", func() error {
		out.Career = career.NewAggregator(career.WithDecay(s.cfg.Career.Decay)).Aggregate(out.Seasonal)
		rep.CareerRows = len(out.Career)
		metrics.UpdateCareerRatings(len(out.Career))
		return nil
	})
	if err != nil {
		return tables.Outputs{}, rep, err
	}

	err = s.stage(ctx, "strength", func() error {
		agg := strength.NewAggregator(
			strength.WithMinutesPerUnit(s.cfg.Strength.MinutesPerUnit),
			strength.WithCoverageThreshold(s.cfg.Strength.CoverageThreshold),
			strength.WithMatcher(s.matcher),
		)
		fb := form.NewBuilder(form.WithWindow(s.cfg.Form.Window), form.WithNormalizer(s.norm))
		sources := []strength.RatingSource{
			strength.NewRollingSource(replay.History, s.cfg.Elo.StartRating).Include(replay.Snapshots),
			strength.NewSeasonalSource(out.Seasonal, out.Career),
		}
		for _, src := range sources {
			rows := agg.Aggregate(matches, lineup, src)
			covered := 0
			for _, r := range rows {
				if r.CoverageOK {
					covered++
				}
			}
			ratio := 0.0
			if len(rows) > 0 {
				ratio = float64(covered) / float64(len(rows))
			}
			rep.StrengthCoverage[src.Name()] = covered
			metrics.RecordStrength(src.Name(), len(rows), ratio)

			feats := strength.BuildFeatures(rows)
			fb.Apply(feats, matches)
			out.Strengths = append(out.Strengths, tables.StrengthSet{Source: src.Name(), Rows: rows})
			out.Features = append(out.Features, tables.FeatureSet{Source: src.Name(), Rows: feats})
		}
		return nil
	})
	if err != nil {
		return tables.Outputs{}, rep, err
	}

	err = s.stage(ctx, "board", func() error {
		if err := s.fillBoard(ctx, replay, in.PlayerSeasons); err != nil {
			return err
		}
		for _, id := range s.cfg.BoardWatch {
			e, err := s.board.Rank(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				log.Warn(ctx, "watched athlete not on the board", logger.String("player_id", id))
				continue
			}
			if err != nil {
				return err
			}
			rep.Watched = append(rep.Watched, e)
			logEntry(ctx, log, "watched", e)
		}
		if s.cfg.BoardSize == 0 || s.board.Count(ctx) == 0 {
			return nil
		}
		top, err := s.board.TopN(ctx, s.cfg.BoardSize)
		if err != nil {
			return err
		}
		rep.Board = top
		for _, e := range top {
			logEntry(ctx, log, "board", e)
		}
		return nil
	})
	if err != nil {
		return tables.Outputs{}, rep, err
	}

	for _, sink := range s.sinks {
		err = s.stage(ctx, "sink", func() error { return sink.WriteRun(ctx, rep.RunID, out) })
		if err != nil {
			return out, rep, err
		}
	}

	rep.Duration = time.Since(started)
	metrics.RecordRun(rep.Duration.Seconds(), rep.StartedAt.Unix())
	log.Info(ctx, "pipeline run finished",
		logger.String("run_id", rep.RunID.String()),
		logger.Duration("elapsed", rep.Duration),
		logger.Int("rosters", rep.Roster.Rosters),
		logger.Int("missing_rosters", rep.Roster.MissingRosters),
		logger.Int("elo_processed", rep.EloProcessed),
		logger.Int("elo_skipped", replay.Skipped()),
		logger.Float64("brier", rep.Brier),
		logger.Int("seasonal_eligible", rep.Eligible),
		logger.Int("career_rows", rep.CareerRows),
	)
	return out, rep, nil
}

func logEntry(ctx context.Context, log logger.Logger, msg string, e repository.Entry) {
	log.Info(ctx, msg,
		logger.Int("rank", e.Rank),
		logger.String("player_id", e.AthleteID),
		logger.String("name", e.Name),
		logger.String("team", e.Team),
		logger.Float64("rating", e.Rating),
		logger.Int("matches", e.Matches),
	)
}

// fillBoard upserts the final rolling rating of every rated athlete. The
// team is the one carried into the athlete's latest rated match.
func (s *Service) fillBoard(ctx context.Context, replay elo.Result, players []model.PlayerSeason) error {
	if replay.Final == nil {
		return nil
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		if p.Name != "" {
			names[p.AthleteID] = p.Name
		}
	}
	type seen struct {
		team    string
		date    time.Time
		matches int
	}
	latest := make(map[string]*seen)
	for _, h := range replay.History {
		e, ok := latest[h.AthleteID]
		if !ok {
			e = &seen{}
			latest[h.AthleteID] = e
		}
		e.matches++
		if !h.Date.Before(e.date) {
			e.team, e.date = h.Team, h.Date
		}
	}

	ids := replay.Final.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		e := repository.Entry{AthleteID: id, Name: names[id], Rating: replay.Final.Get(id)}
		if l, ok := latest[id]; ok {
			e.Team, e.Matches = l.team, l.matches
		}
		if _, err := s.board.Upsert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Tune infers rosters from in and scores every cell of the configured grid.
func (s *Service) Tune(ctx context.Context, in tables.Inputs) (elo.TuneResult, error) {
	var rep Report
	matches, lineup, err := s.prepare(ctx, &in, &rep)
	if err != nil {
		return elo.TuneResult{}, err
	}
	grid := s.Grid()
	s.logger.Info(ctx, "tuning elo",
		logger.Int("matches", len(matches)),
		logger.Int("cells", grid.Size()),
	)
	var res elo.TuneResult
	err = s.stage(ctx, "tune", func() error {
		var err error
		res, err = elo.Tune(ctx, matches, lineup, grid, s.eloOptions()...)
		return err
	})
	return res, err
}
