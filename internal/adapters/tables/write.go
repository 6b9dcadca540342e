package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/pkg/metrics"
)

const defaultPrecision = 4

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithPrecision sets the number of decimals written for ratings and minutes.
// A negative value writes full precision.
func WithPrecision(p int) Option {
	return func(w *Writer) {
		w.precision = p
	}
}

// Writer writes output tables into a directory.
type Writer struct {
	dir       string
	precision int
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, precision: defaultPrecision}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// StrengthSet is the team strength table of one rating source.
type StrengthSet struct {
	Source string
	Rows   []model.TeamStrength
}

// FeatureSet is the match features table of one rating source.
type FeatureSet struct {
	Source string
	Rows   []model.MatchFeatures
}

// Outputs is everything a run writes.
type Outputs struct {
	Lineup    []model.RosterAssignment
	History   []model.HistoryRow
	Seasonal  []model.SeasonalRating
	Career    []model.CareerRating
	Strengths []StrengthSet
	Features  []FeatureSet
}

// WriteAll writes every output table, creating the directory if needed.
func (w *Writer) WriteAll(out Outputs) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	steps := []struct {
		name string
		fn   func(io.Writer) (int, error)
	}{
		{LineupFile, func(f io.Writer) (int, error) { return w.Lineup(f, out.Lineup) }},
		{RollingRatingsFile, func(f io.Writer) (int, error) { return w.History(f, out.History) }},
		{SeasonalRatingsFile, func(f io.Writer) (int, error) { return w.Seasonal(f, out.Seasonal) }},
		{CareerRatingsFile, func(f io.Writer) (int, error) { return w.Career(f, out.Career) }},
		{TeamStrengthFile, func(f io.Writer) (int, error) { return w.Strengths(f, out.Strengths...) }},
		{MatchFeaturesFile, func(f io.Writer) (int, error) { return w.Features(f, out.Features...) }},
	}
	for _, s := range steps {
		if err := w.writeFile(s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFile(name string, fn func(io.Writer) (int, error)) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	metrics.RecordRowsWritten(strings.TrimSuffix(name, ".csv"), n)
	return nil
}

// Lineup writes roster assignments.
func (w *Writer) Lineup(dst io.Writer, rows []model.RosterAssignment) (int, error) {
	return write(dst, lineupHeader, rows, func(r model.RosterAssignment) []string {
		return []string{
			r.MatchKey, strconv.Itoa(r.Season), date(r.Date), r.Team,
			r.AthleteID, r.AthleteName, w.num(r.ExpectedMinutes), r.Source,
		}
	})
}

// History writes the rolling pre-match rating log.
func (w *Writer) History(dst io.Writer, rows []model.HistoryRow) (int, error) {
	return write(dst, rollingHeader, rows, func(r model.HistoryRow) []string {
		return []string{r.MatchKey, r.AthleteID, r.Team, date(r.Date), w.num(r.Rating)}
	})
}

// Seasonal writes seasonal ratings; undefined values are empty cells.
func (w *Writer) Seasonal(dst io.Writer, rows []model.SeasonalRating) (int, error) {
	return write(dst, seasonalHeader, rows, func(r model.SeasonalRating) []string {
		return []string{
			r.AthleteID, r.Name, strconv.Itoa(r.Season), r.Team, r.Role,
			w.num(r.Minutes), strconv.FormatBool(r.Eligible),
			w.num(r.AttackRaw), w.num(r.DefenseRaw), w.num(r.NegativeRaw), w.num(r.TotalRaw),
			w.opt(r.AttackShrunk), w.opt(r.DefenseShrunk), w.opt(r.TotalShrunk), w.opt(r.PercentileRank),
			w.opt(r.PrevSeasonScore), w.opt(r.ScoreDelta),
		}
	})
}

// Career writes career ratings.
func (w *Writer) Career(dst io.Writer, rows []model.CareerRating) (int, error) {
	return write(dst, careerHeader, rows, func(r model.CareerRating) []string {
		return []string{
			r.AthleteID, r.Name, w.num(r.TotalMinutes), strconv.Itoa(r.SeasonsPlayed),
			w.num(r.CareerAttack), w.num(r.CareerDefense), w.num(r.CareerTotal), w.num(r.CareerPercentile),
			w.num(r.PeakTotal), w.num(r.PeakPercentile),
		}
	})
}

// Strengths writes the team strength rows of every source into one table.
func (w *Writer) Strengths(dst io.Writer, sets ...StrengthSet) (int, error) {
	type row struct {
		source string
		model.TeamStrength
	}
	var rows []row
	for _, s := range sets {
		for _, r := range s.Rows {
			rows = append(rows, row{source: s.Source, TeamStrength: r})
		}
	}
	return write(dst, strengthHeader, rows, func(r row) []string {
		return []string{
			r.source, r.MatchKey, strconv.Itoa(r.Season), date(r.Date), r.Team, string(r.Side), r.Opponent,
			w.num(r.Attack), w.num(r.Defense), w.num(r.Total),
			strconv.Itoa(r.RosterCount), w.num(r.MinutesSum),
			strconv.Itoa(r.RatedCount), w.num(r.RatedMinutes), w.num(r.FallbackMinutes),
			w.num(r.CoverageRate), strconv.FormatBool(r.CoverageOK),
			strings.Join(r.UncoveredIDs, ";"), strings.Join(r.UncoveredNames, ";"),
		}
	})
}

// Features writes the match features of every source into one table.
func (w *Writer) Features(dst io.Writer, sets ...FeatureSet) (int, error) {
	type row struct {
		source string
		model.MatchFeatures
	}
	var rows []row
	for _, s := range sets {
		for _, r := range s.Rows {
			rows = append(rows, row{source: s.Source, MatchFeatures: r})
		}
	}
	return write(dst, featuresHeader, rows, func(r row) []string {
		return []string{
			r.source, r.MatchKey, strconv.Itoa(r.Season), date(r.Date), r.HomeTeam, r.AwayTeam,
			w.num(r.DiffTotal), w.num(r.DiffAttack), w.num(r.DiffDefense),
			w.num(r.HomeTotal), w.num(r.AwayTotal), strconv.FormatBool(r.BothCoverageOK),
			w.num(r.HomeFormPoints), w.num(r.AwayFormPoints), w.num(r.HomeFormGoals), w.num(r.AwayFormGoals),
			w.num(r.DiffFormPoints), w.num(r.DiffFormGoals),
		}
	})
}

func write[T any](dst io.Writer, header []string, rows []T, format func(T) []string) (int, error) {
	cw := csv.NewWriter(dst)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if err := cw.Write(format(r)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

func (w *Writer) num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if w.precision >= 0 {
		p := math.Pow(10, float64(w.precision))
		v = math.Round(v*p) / p
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (w *Writer) opt(v *float64) string {
	if v == nil {
		return ""
	}
	return w.num(*v)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
