package tables_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/squadrank/internal/adapters/tables"
	"github.com/okian/squadrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const matchesCSV = `Season,Date,Home_Team,Away_Team,Home_Score,Away_Score,Status
2023,2023-04-15,Forge FC,York United,3,0,finished
2023,2023-04-22T19:00:00Z,York United,Pacific FC,1,1,
2023,2023-05-01,Pacific FC,Forge FC,,,
`

const statsCSV = "\ufeffplayer_id,player_name,team,season,role,minutes,games_played,Goals,Tackles,PassPct\n" +
	"p1,Ana,Forge FC,2023,FW,900,10,5,,81.5\n" +
	"p2,Bo,Forge FC,2023.0,DF,450,5,0,12,NaN\n"

func TestReadMatches(t *testing.T) {
	Convey("Given a results table", t, func() {
		rows, skipped, err := tables.ReadMatches(strings.NewReader(matchesCSV))

		Convey("Then headers match case-insensitively and status is inferred", func() {
			So(err, ShouldBeNil)
			So(skipped, ShouldBeEmpty)
			So(len(rows), ShouldEqual, 3)
			So(rows[0].Key(), ShouldEqual, "2023_2023-04-15_Forge_FC_vs_York_United")
			So(rows[0].HomeScore, ShouldEqual, 3)
			So(rows[0].Finished(), ShouldBeTrue)
			So(rows[1].Date.Equal(time.Date(2023, 4, 22, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(rows[1].Finished(), ShouldBeTrue)
			So(rows[2].Status, ShouldEqual, model.StatusScheduled)
		})
	})

	Convey("Given a results table without a score column", t, func() {
		_, _, err := tables.ReadMatches(strings.NewReader("season,date,home_team,away_team,home_score\n"))

		Convey("Then the missing column is named", func() {
			So(errors.Is(err, tables.ErrMissingColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "away_score")
		})
	})

	Convey("Given malformed cells among good rows", t, func() {
		rows, skipped, err := tables.ReadMatches(strings.NewReader("season,date,home_team,away_team,home_score,away_score\n" +
			"2023,15/04/2023,A,B,1,0\n" +
			"2023,2023-04-15,A,B,1,0\n" +
			"twenty,2023-04-22,B,A,0,0\n" +
			"2023,2023-04-29,A,B,two,0\n" +
			"2023,2023-05-06,B,A,2,2\n"))

		Convey("Then only the malformed rows are skipped", func() {
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Date.Equal(time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(rows[1].HomeScore, ShouldEqual, 2)
			So(len(skipped), ShouldEqual, 3)
			for _, e := range skipped {
				So(errors.Is(e, tables.ErrBadValue), ShouldBeTrue)
			}
			So(skipped[0].Error(), ShouldContainSubstring, "line 2")
			So(skipped[1].Error(), ShouldContainSubstring, "column season")
			So(skipped[2].Error(), ShouldContainSubstring, "column home_score")
		})
	})

	Convey("Given an empty file", t, func() {
		_, _, err := tables.ReadMatches(strings.NewReader(""))

		Convey("Then the table has no columns", func() {
			So(errors.Is(err, tables.ErrMissingColumn), ShouldBeTrue)
		})
	})
}

func TestReadSeasonStats(t *testing.T) {
	Convey("Given a statistics table with a byte order mark", t, func() {
		rows, _, err := tables.ReadSeasonStats(strings.NewReader(statsCSV))

		Convey("Then identity columns are parsed and other columns become statistics", func() {
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].AthleteID, ShouldEqual, "p1")
			So(rows[0].Minutes, ShouldEqual, 900)
			So(rows[0].GamesPlayed, ShouldEqual, 10)
			So(rows[0].Stats, ShouldResemble, map[string]float64{"Goals": 5, "PassPct": 81.5})
			So(rows[1].Season, ShouldEqual, 2023)
			So(rows[1].Stats, ShouldResemble, map[string]float64{"Goals": 0, "Tackles": 12})
		})
	})
}

func TestReadPlayerSeasons(t *testing.T) {
	Convey("Given a roster input table", t, func() {
		rows, skipped, err := tables.ReadPlayerSeasons(strings.NewReader("player_id,player_name,team,season,minutes,role\n" +
			"p1,Ana,Forge FC,2023,1800,FW\n" +
			"p2,Bo,Forge FC,2023.5,900,DF\n"))

		Convey("Then each well formed row becomes a player season", func() {
			So(err, ShouldBeNil)
			So(len(skipped), ShouldEqual, 1)
			So(rows, ShouldResemble, []model.PlayerSeason{
				{AthleteID: "p1", Name: "Ana", Team: "Forge FC", Season: 2023, Minutes: 1800, Role: "FW"},
			})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a data directory", t, func() {
		dir := t.TempDir()

		Convey("When an input file is absent", func() {
			_, err := tables.Load(dir)

			Convey("Then the missing input is reported", func() {
				So(errors.Is(err, tables.ErrMissingInput), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, tables.MatchesFile)
			})
		})

		Convey("When every table is present", func() {
			So(os.WriteFile(filepath.Join(dir, tables.MatchesFile), []byte(matchesCSV), 0o600), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, tables.PlayerSeasonsFile), []byte("player_id,team,season,minutes\np1,Forge FC,2023,900\n"), 0o600), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, tables.SeasonStatsFile), []byte(statsCSV), 0o600), ShouldBeNil)

			in, err := tables.Load(dir)

			Convey("Then all inputs are loaded", func() {
				So(err, ShouldBeNil)
				So(len(in.Matches), ShouldEqual, 3)
				So(len(in.PlayerSeasons), ShouldEqual, 1)
				So(len(in.SeasonStats), ShouldEqual, 2)
				So(in.Skipped, ShouldBeEmpty)
			})
		})

		Convey("When a statistics row has a malformed season", func() {
			So(os.WriteFile(filepath.Join(dir, tables.MatchesFile), []byte(matchesCSV), 0o600), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, tables.PlayerSeasonsFile), []byte("player_id,team,season,minutes\np1,Forge FC,2023,900\n"), 0o600), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, tables.SeasonStatsFile), []byte(statsCSV+"p3,Cy,Forge FC,n/a,MF,900,10,1,,\n"), 0o600), ShouldBeNil)

			in, err := tables.Load(dir)

			Convey("Then the load succeeds without that row and names its file", func() {
				So(err, ShouldBeNil)
				So(len(in.SeasonStats), ShouldEqual, 2)
				So(len(in.Skipped), ShouldEqual, 1)
				So(errors.Is(in.Skipped[0], tables.ErrBadValue), ShouldBeTrue)
				So(in.Skipped[0].Error(), ShouldContainSubstring, tables.SeasonStatsFile)
				So(in.Skipped[0].Error(), ShouldContainSubstring, "line 4")
			})
		})
	})
}

func TestWriter(t *testing.T) {
	Convey("Given a writer with default precision", t, func() {
		w := tables.NewWriter(t.TempDir())
		day := time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC)

		Convey("When writing seasonal ratings", func() {
			var buf bytes.Buffer
			n, err := w.Seasonal(&buf, []model.SeasonalRating{
				{AthleteID: "p1", Name: "Ana", Season: 2023, Team: "Forge FC", Role: "FW", Minutes: 900, Eligible: true,
					TotalRaw: 1.234567, TotalShrunk: model.Float(0.8230446), PercentileRank: model.Float(100)},
				{AthleteID: "p2", Season: 2023, TotalRaw: -1},
			})

			Convey("Then values are rounded and undefined cells are empty", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(len(lines), ShouldEqual, 3)
				So(lines[1], ShouldEqual, "p1,Ana,2023,Forge FC,FW,900,true,0,0,0,1.2346,,,0.823,100,,")
				So(lines[2], ShouldEqual, "p2,,2023,,,0,false,0,0,0,-1,,,,,,")
			})
		})

		Convey("When writing strengths from two sources", func() {
			var buf bytes.Buffer
			row := model.TeamStrength{MatchKey: "k", Season: 2023, Date: day, Team: "Forge FC", Side: model.Home,
				Opponent: "York United", Total: 8.25, CoverageRate: 0.5, UncoveredIDs: []string{"b", "c"}}
			n, err := w.Strengths(&buf,
				tables.StrengthSet{Source: "rolling", Rows: []model.TeamStrength{row}},
				tables.StrengthSet{Source: "seasonal", Rows: []model.TeamStrength{row}},
			)

			Convey("Then each row carries its source", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(buf.String(), ShouldContainSubstring, "rolling,k,2023,2023-04-15,Forge FC,home,York United,0,0,8.25,0,0,0,0,0,0.5,false,b;c,")
				So(buf.String(), ShouldContainSubstring, "seasonal,k,")
			})
		})

		Convey("When writing every table", func() {
			dir := filepath.Join(t.TempDir(), "out")
			err := tables.NewWriter(dir, tables.WithPrecision(-1)).WriteAll(tables.Outputs{
				History: []model.HistoryRow{{MatchKey: "k", AthleteID: "p1", Team: "Forge FC", Date: day, Rating: 1507.0687}},
			})

			Convey("Then each file exists with its header", func() {
				So(err, ShouldBeNil)
				for _, name := range []string{tables.LineupFile, tables.RollingRatingsFile, tables.SeasonalRatingsFile,
					tables.CareerRatingsFile, tables.TeamStrengthFile, tables.MatchFeaturesFile} {
					_, statErr := os.Stat(filepath.Join(dir, name))
					So(statErr, ShouldBeNil)
				}
				data, _ := os.ReadFile(filepath.Join(dir, tables.RollingRatingsFile))
				So(string(data), ShouldEqual, "match_key,player_id,team,date,rating\nk,p1,Forge FC,2023-04-15,1507.0687\n")
			})
		})
	})
}
