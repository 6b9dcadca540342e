package form_test

import (
	"testing"
	"time"

	"github.com/okian/squadrank/internal/domain/form"
	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
	"github.com/smartystreets/goconvey/convey"
)

func played(day int, home, away string, hs, as int) model.Match {
	return model.Match{
		Season:    2023,
		Date:      time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: hs,
		AwayScore: as,
		Status:    model.StatusFinished,
	}
}

func TestCompute(t *testing.T) {
	convey.Convey("Given a run of results", t, func() {
		matches := []model.Match{
			played(7, "York", "Forge", 1, 1),
			played(0, "Forge", "York", 2, 0),
			played(14, "Forge", "Pacific", 0, 1),
		}
		next := played(21, "Forge", "York", 0, 0)
		next.Status = model.StatusScheduled
		matches = append(matches, next)

		pairs := form.NewBuilder().Compute(matches)

		convey.Convey("When a team has no earlier results", func() {
			p := pairs[matches[1].Key()]

			convey.Convey("Then its form is zero", func() {
				convey.So(p.Home, convey.ShouldResemble, form.Snapshot{})
				convey.So(p.Away, convey.ShouldResemble, form.Snapshot{})
			})
		})

		convey.Convey("When a team has earlier results", func() {
			p := pairs[matches[2].Key()]

			convey.Convey("Then only results before the match count", func() {
				convey.So(p.Home.Points, convey.ShouldEqual, 2.0)
				convey.So(p.Home.GoalDiff, convey.ShouldEqual, 1.0)
				convey.So(p.Home.Matches, convey.ShouldEqual, 2)
				convey.So(p.Away.Matches, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the match is still scheduled", func() {
			p := pairs[next.Key()]

			convey.Convey("Then it still gets pre-match form", func() {
				convey.So(p.Home.Points, convey.ShouldAlmostEqual, 4.0/3, 1e-12)
				convey.So(p.Away.Points, convey.ShouldAlmostEqual, 0.5, 1e-12)
				convey.So(p.Away.GoalDiff, convey.ShouldEqual, -1.0)
			})
		})
	})

	convey.Convey("Given more results than the window", t, func() {
		var matches []model.Match
		for i := 0; i < 4; i++ {
			matches = append(matches, played(i*7, "Forge", "Valour", 0, 3))
		}
		matches = append(matches, played(28, "Forge", "Valour", 5, 0), played(35, "Forge", "Valour", 1, 0))

		pairs := form.NewBuilder(form.WithWindow(2)).Compute(matches)

		convey.Convey("Then only the last results are averaged", func() {
			p := pairs[matches[5].Key()]
			convey.So(p.Home.Points, convey.ShouldEqual, 1.5)
			convey.So(p.Home.GoalDiff, convey.ShouldEqual, 1.0)
			convey.So(p.Home.Matches, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given aliased team labels", t, func() {
		matches := []model.Match{
			played(0, "York United", "Forge FC", 0, 2),
			played(7, "Forge", "York", 0, 0),
		}
		b := form.NewBuilder(form.WithNormalizer(teamname.NewNormalizer(teamname.DefaultAliases())))
		pairs := b.Compute(matches)

		convey.Convey("Then aliases share one history", func() {
			p := pairs[matches[1].Key()]
			convey.So(p.Home.Points, convey.ShouldEqual, 3.0)
			convey.So(p.Away.GoalDiff, convey.ShouldEqual, -2.0)
		})
	})
}

func TestApply(t *testing.T) {
	convey.Convey("Given features for a match", t, func() {
		matches := []model.Match{
			played(0, "Forge", "York", 3, 0),
			played(7, "York", "Forge", 1, 1),
		}
		features := []model.MatchFeatures{{MatchKey: matches[1].Key()}, {MatchKey: "unknown"}}
		form.NewBuilder().Apply(features, matches)

		convey.Convey("Then form columns and differentials are filled", func() {
			f := features[0]
			convey.So(f.HomeFormPoints, convey.ShouldEqual, 0.0)
			convey.So(f.AwayFormPoints, convey.ShouldEqual, 3.0)
			convey.So(f.DiffFormPoints, convey.ShouldEqual, -3.0)
			convey.So(f.DiffFormGoals, convey.ShouldEqual, -6.0)
			convey.So(features[1].DiffFormPoints, convey.ShouldEqual, 0.0)
		})
	})
}
