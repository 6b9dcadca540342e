// Package metrics provides Prometheus metrics for the squadrank rating pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingest
	matchesIngested   prometheus.Counter
	matchesDuplicate  prometheus.Counter
	statsRowsIngested prometheus.Counter

	// Roster allocation
	rostersAssigned   prometheus.Counter
	rostersMissing    prometheus.Counter
	rostersInfeasible prometheus.Counter
	rosterIterations  prometheus.Histogram

	// Rating tracker
	eloProcessed prometheus.Counter
	eloSkipped   *prometheus.CounterVec
	eloBrier     prometheus.Gauge

	// Seasonal and career
	seasonalRatings prometheus.Gauge
	seasonalElig    prometheus.Gauge
	unknownRoles    prometheus.Counter
	careerRatings   prometheus.Gauge

	// Team strength
	strengthRows     *prometheus.CounterVec
	strengthCoverage *prometheus.GaugeVec

	// Rating board
	boardAthletes     prometheus.Gauge
	boardUpdates      prometheus.Counter
	boardQueryLatency prometheus.Histogram

	// Output
	rowsWritten *prometheus.CounterVec

	// Run
	stageDuration *prometheus.HistogramVec
	runDuration   prometheus.Gauge
	lastRunUnix   prometheus.Gauge
	errors        *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squadrank",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.matchesIngested = m.counter("matches_ingested_total", "Matches read from the results table after deduplication")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Match rows dropped as repeats of an earlier match key")
	m.statsRowsIngested = m.counter("stats_rows_ingested_total", "Season statistics rows read")

	m.rostersAssigned = m.counter("rosters_assigned_total", "Team rosters allocated for finished matches")
	m.rostersMissing = m.counter("rosters_missing_total", "Team sides with no known athletes (MISSING sentinel)")
	m.rostersInfeasible = m.counter("rosters_infeasible_total", "Rosters too small to fit the minutes budget under the cap")
	m.rosterIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "roster_cap_iterations",
		Help:        "Cap-and-redistribute iterations per roster",
		Buckets:     []float64{0, 1, 2, 3, 5, 10, 20, 50},
		ConstLabels: m.constLabels,
	})

	m.eloProcessed = m.counter("elo_matches_processed_total", "Matches that updated ratings")
	m.eloSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "elo_matches_skipped_total",
		Help:        "Matches skipped by the rating tracker by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})
	m.eloBrier = m.gauge("elo_brier_loss", "Brier loss of home expected scores in the last replay")

	m.seasonalRatings = m.gauge("seasonal_ratings", "Seasonal rating rows in the last run")
	m.seasonalElig = m.gauge("seasonal_eligible", "Eligible seasonal rating rows in the last run")
	m.unknownRoles = m.counter("unknown_roles_total", "Distinct role labels scored without role weights")
	m.careerRatings = m.gauge("career_ratings", "Career rating rows in the last run")

	m.strengthRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "strength_rows_total",
		Help:        "Team strength rows emitted by rating source",
		ConstLabels: m.constLabels,
	}, []string{"source"})
	m.strengthCoverage = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "strength_coverage_ok_ratio",
		Help:        "Share of team strength rows meeting the coverage threshold by rating source",
		ConstLabels: m.constLabels,
	}, []string{"source"})

	m.boardAthletes = m.gauge("board_athletes", "Athletes on the rating board")
	m.boardUpdates = m.counter("board_updates_total", "Rating board upserts")
	m.boardQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "board_query_latency_milliseconds",
		Help:        "Rating board rank and top-N query latency in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})

	m.rowsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_written_total",
		Help:        "Rows written per output table",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Duration of each pipeline stage in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})
	m.runDuration = m.gauge("run_duration_seconds", "Duration of the last full run in seconds")
	m.lastRunUnix = m.gauge("last_run_unix", "Unix time the last run finished")
	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "type"})
}

// RecordMatchesIngested adds to the ingested match counter.
func RecordMatchesIngested(n int) {
	globalManager.matchesIngested.Add(float64(n))
}

// RecordMatchesDuplicate adds to the duplicate match counter.
func RecordMatchesDuplicate(n int) {
	globalManager.matchesDuplicate.Add(float64(n))
}

// RecordStatsRowsIngested adds to the statistics row counter.
func RecordStatsRowsIngested(n int) {
	globalManager.statsRowsIngested.Add(float64(n))
}

// RecordRosters records the outcome of a roster assignment run.
func RecordRosters(assigned, missing, infeasible int) {
	globalManager.rostersAssigned.Add(float64(assigned))
	globalManager.rostersMissing.Add(float64(missing))
	globalManager.rostersInfeasible.Add(float64(infeasible))
}

// RecordRosterIterations observes the cap loop iterations of one roster.
func RecordRosterIterations(n int) {
	globalManager.rosterIterations.Observe(float64(n))
}

// RecordEloReplay records the outcome of a rating replay.
func RecordEloReplay(processed, skippedNoRoster, skippedEmptySide int, brier float64) {
	globalManager.eloProcessed.Add(float64(processed))
	globalManager.eloSkipped.WithLabelValues("no_roster").Add(float64(skippedNoRoster))
	globalManager.eloSkipped.WithLabelValues("empty_side").Add(float64(skippedEmptySide))
	globalManager.eloBrier.Set(brier)
}

// UpdateSeasonalRatings sets the seasonal table gauges.
func UpdateSeasonalRatings(rows, eligible int) {
	globalManager.seasonalRatings.Set(float64(rows))
	globalManager.seasonalElig.Set(float64(eligible))
}

// RecordUnknownRoles adds to the unknown role counter.
func RecordUnknownRoles(n int) {
	globalManager.unknownRoles.Add(float64(n))
}

// UpdateCareerRatings sets the career table gauge.
func UpdateCareerRatings(rows int) {
	globalManager.careerRatings.Set(float64(rows))
}

// RecordStrength records the rows and coverage ratio for one rating source.
func RecordStrength(source string, rows int, coverageOKRatio float64) {
	globalManager.strengthRows.WithLabelValues(source).Add(float64(rows))
	globalManager.strengthCoverage.WithLabelValues(source).Set(coverageOKRatio)
}

// UpdateBoardAthletes sets the rating board size.
func UpdateBoardAthletes(n int) {
	globalManager.boardAthletes.Set(float64(n))
}

// RecordBoardUpdate increments the board upsert counter.
func RecordBoardUpdate() {
	globalManager.boardUpdates.Inc()
}

// RecordBoardQueryLatency observes a board query latency in milliseconds.
func RecordBoardQueryLatency(latencyMs float64) {
	globalManager.boardQueryLatency.Observe(latencyMs)
}

// RecordRowsWritten adds to the written row counter of a table.
func RecordRowsWritten(table string, n int) {
	globalManager.rowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordStageDuration observes a stage duration in seconds.
func RecordStageDuration(stage string, seconds float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordRun sets the run duration and completion time.
func RecordRun(seconds float64, finishedUnix int64) {
	globalManager.runDuration.Set(seconds)
	globalManager.lastRunUnix.Set(float64(finishedUnix))
}

// RecordErrorByComponent increments the error counter.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errors.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return ErrNoPath
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
