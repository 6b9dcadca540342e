package tables

import (
	"encoding/csv"
	"errors"
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

// Inputs is everything the engine reads from the data directory.
type Inputs struct {
	Matches       []model.Match
	PlayerSeasons []model.PlayerSeason
	SeasonStats   []model.SeasonStats

	// Skipped holds one ErrBadValue per data row dropped for a malformed cell.
	Skipped []error
}

// Load reads the three input tables from dir. A missing file or column
// fails the load; a malformed row is skipped and listed in Inputs.Skipped.
func Load(dir string) (Inputs, error) {
	var in Inputs
	var err error
	if in.Matches, err = readFile(dir, MatchesFile, ReadMatches, &in.Skipped); err != nil {
		return Inputs{}, err
	}
	if in.PlayerSeasons, err = readFile(dir, PlayerSeasonsFile, ReadPlayerSeasons, &in.Skipped); err != nil {
		return Inputs{}, err
	}
	if in.SeasonStats, err = readFile(dir, SeasonStatsFile, ReadSeasonStats, &in.Skipped); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

func readFile[T any](dir, name string, read func(io.Reader) ([]T, []error, error), skipped *[]error) ([]T, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, bad, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, b := range bad {
		metrics.RecordErrorByComponent("tables", "bad_row")
		*skipped = append(*skipped, fmt.Errorf("%s: %w", name, b))
	}
	return rows, nil
}

// header maps lowercased column names to their position.
type header map[string]int

func readHeader(r *csv.Reader, required []string) (header, []string, error) {
	names, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
		}
		return nil, nil, err
	}
	names = append([]string(nil), names...)
	h := make(header, len(names))
	for i, n := range names {
		n = strings.TrimSpace(strings.TrimPrefix(n, "\ufeff"))
		names[i] = n
		key := strings.ToLower(n)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	var missing []string
	for _, c := range required {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, names, nil
}

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// parseScore is parseFloat for a score cell; a present but unreadable
// value is an error rather than a missing score.
func parseScore(line int, col, s string) (float64, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	v, ok := parseFloat(s)
	if !ok {
		return 0, false, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, col, s)
	}
	return v, true, nil
}

func parseInt(line int, col, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Accept "2023.0" style integers from spreadsheet exports.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, col, s)
		}
		return int(f), nil
	}
	return v, nil
}

// parseFloat returns ok=false for empty or non-finite cells.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseDate(line int, s string) (time.Time, error) {
	if len(s) > len(model.DateLayout) {
		s = s[:len(model.DateLayout)]
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, colDate, s)
	}
	return d, nil
}

// ReadMatches parses the results table. A row without a status is finished
// when both scores are present and scheduled otherwise. Rows with a
// malformed season, date or score are returned as skipped.
func ReadMatches(r io.Reader) ([]model.Match, []error, error) {
	cr := newCSVReader(r)
	h, _, err := readHeader(cr, matchColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []model.Match
		skipped []error
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		season, err := parseInt(line, colSeason, h.get(rec, colSeason))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		date, err := parseDate(line, h.get(rec, colDate))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		hs, hok, err := parseScore(line, colHomeScore, h.get(rec, colHomeScore))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		as, aok, err := parseScore(line, colAwayScore, h.get(rec, colAwayScore))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}

		status := strings.ToLower(h.get(rec, colStatus))
		if status == "" {
			status = model.StatusScheduled
			if hok && aok {
				status = model.StatusFinished
			}
		}

		out = append(out, model.Match{
			Season:    season,
			Date:      date,
			HomeTeam:  h.get(rec, colHomeTeam),
			AwayTeam:  h.get(rec, colAwayTeam),
			HomeScore: int(hs),
			AwayScore: int(as),
			Status:    status,
		})
	}
	return out, skipped, nil
}

// ReadPlayerSeasons parses the roster input table. Rows with a malformed
// season are returned as skipped.
func ReadPlayerSeasons(r io.Reader) ([]model.PlayerSeason, []error, error) {
	cr := newCSVReader(r)
	h, _, err := readHeader(cr, playerSeasonColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []model.PlayerSeason
		skipped []error
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		season, err := parseInt(line, colSeason, h.get(rec, colSeason))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		minutes, _ := parseFloat(h.get(rec, colMinutes))
		out = append(out, model.PlayerSeason{
			AthleteID: h.get(rec, colPlayerID),
			Name:      h.get(rec, colPlayerName),
			Team:      h.get(rec, colTeam),
			Season:    season,
			Minutes:   minutes,
			Role:      h.get(rec, colRole),
		})
	}
	return out, skipped, nil
}

// ReadSeasonStats parses the season statistics table. Every column outside
// the identity set is a named statistic; empty cells are left unreported.
// Rows with a malformed season are returned as skipped.
func ReadSeasonStats(r io.Reader) ([]model.SeasonStats, []error, error) {
	cr := newCSVReader(r)
	h, names, err := readHeader(cr, seasonStatsColumns)
	if err != nil {
		return nil, nil, err
	}

	// Statistic names keep their header spelling.
	var statCols []int
	for i, n := range names {
		if n != "" && !statsIdentity[strings.ToLower(n)] {
			statCols = append(statCols, i)
		}
	}

	var (
		out     []model.SeasonStats
		skipped []error
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		season, err := parseInt(line, colSeason, h.get(rec, colSeason))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		minutes, _ := parseFloat(h.get(rec, colMinutes))
		games, _ := parseFloat(h.get(rec, colGames))

		stats := make(map[string]float64, len(statCols))
		for _, i := range statCols {
			if i >= len(rec) {
				continue
			}
			if v, ok := parseFloat(strings.TrimSpace(rec[i])); ok {
				stats[names[i]] = v
			}
		}

		out = append(out, model.SeasonStats{
			AthleteID:   h.get(rec, colPlayerID),
			Name:        h.get(rec, colPlayerName),
			Team:        h.get(rec, colTeam),
			Season:      season,
			Role:        h.get(rec, colRole),
			Minutes:     minutes,
			GamesPlayed: games,
			Stats:       stats,
		})
	}
	return out, skipped, nil
}
