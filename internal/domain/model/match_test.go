package model_test

import (
	"testing"
	"time"

	model "github.com/okian/squadrank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMatch(t *testing.T) {
	convey.Convey("Given a finished match", t, func() {
		m := model.Match{
			Season:    2023,
			Date:      time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC),
			HomeTeam:  "York United",
			AwayTeam:  "Forge",
			HomeScore: 3,
			AwayScore: 1,
			Status:    "FINISHED",
		}

		convey.Convey("When deriving its key", func() {
			convey.Convey("Then season, date and both teams are joined with underscores", func() {
				convey.So(m.Key(), convey.ShouldEqual, "2023_2023-04-15_York_United_vs_Forge")
			})
		})

		convey.Convey("When reading the outcome", func() {
			home, away := m.Outcome()

			convey.Convey("Then the home side won", func() {
				convey.So(home, convey.ShouldEqual, 1.0)
				convey.So(away, convey.ShouldEqual, 0.0)
				convey.So(m.GoalMargin(), convey.ShouldEqual, 2)
				convey.So(m.Finished(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the score is level", func() {
			m.AwayScore = 3
			home, away := m.Outcome()

			convey.Convey("Then both sides get half a point", func() {
				convey.So(home, convey.ShouldEqual, 0.5)
				convey.So(away, convey.ShouldEqual, 0.5)
				convey.So(m.GoalMargin(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the away side wins", func() {
			m.HomeScore = 0
			home, away := m.Outcome()

			convey.Convey("Then the outcome is reversed", func() {
				convey.So(home, convey.ShouldEqual, 0.0)
				convey.So(away, convey.ShouldEqual, 1.0)
				convey.So(m.GoalMargin(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a scheduled match", t, func() {
		m := model.Match{Status: model.StatusScheduled}

		convey.Convey("Then it is not finished", func() {
			convey.So(m.Finished(), convey.ShouldBeFalse)
		})
	})
}

func TestRosterAssignment(t *testing.T) {
	convey.Convey("Given roster assignments", t, func() {
		convey.Convey("When the row is the missing sentinel", func() {
			a := model.RosterAssignment{AthleteID: model.MissingAthleteID, Source: model.SourceMissing}

			convey.Convey("Then it reports missing", func() {
				convey.So(a.IsMissing(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the row was calculated", func() {
			a := model.RosterAssignment{AthleteID: "p-1", Source: model.SourceCalculated, ExpectedMinutes: 90}

			convey.Convey("Then it is not missing", func() {
				convey.So(a.IsMissing(), convey.ShouldBeFalse)
			})
		})
	})
}
