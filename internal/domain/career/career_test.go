package career_test

import (
	"testing"

	"github.com/okian/squadrank/internal/domain/career"
	"github.com/okian/squadrank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func rated(id string, season int, minutes, total, pct float64) model.SeasonalRating {
	return model.SeasonalRating{
		AthleteID:      id,
		Name:           "Player " + id,
		Season:         season,
		Minutes:        minutes,
		Eligible:       true,
		AttackShrunk:   model.Float(total / 2),
		DefenseShrunk:  model.Float(total / 4),
		TotalShrunk:    model.Float(total),
		PercentileRank: model.Float(pct),
	}
}

func TestAggregate(t *testing.T) {
	convey.Convey("Given seasonal ratings over three seasons", t, func() {
		rows := []model.SeasonalRating{
			rated("a", 2021, 1000, 2.0, 90),
			rated("a", 2023, 1000, 1.0, 60),
			rated("b", 2023, 2000, 0.5, 40),
			{AthleteID: "c", Season: 2023, Minutes: 100},
			rated("d", 2022, 0, 3.0, 99),
		}
		agg := career.NewAggregator()
		out := agg.Aggregate(rows)

		convey.Convey("When weighting by minutes and recency", func() {
			convey.Convey("Then older seasons count less", func() {
				w21 := agg.Weight(1000, 2021, 2023)
				convey.So(w21, convey.ShouldAlmostEqual, 1000*0.85*0.85, 1e-9)

				a := out[0]
				convey.So(a.AthleteID, convey.ShouldEqual, "a")
				want := (w21*2.0 + 1000*1.0) / (w21 + 1000)
				convey.So(a.CareerTotal, convey.ShouldAlmostEqual, want, 1e-9)
				convey.So(a.CareerAttack, convey.ShouldAlmostEqual, want/2, 1e-9)
				convey.So(a.SeasonsPlayed, convey.ShouldEqual, 2)
				convey.So(a.TotalMinutes, convey.ShouldEqual, 2000)
				convey.So(a.PeakTotal, convey.ShouldEqual, 2.0)
				convey.So(a.PeakPercentile, convey.ShouldEqual, 90)
			})
		})

		convey.Convey("When an athlete has no eligible season or zero weight", func() {
			convey.Convey("Then the athlete is left out", func() {
				convey.So(len(out), convey.ShouldEqual, 2)
				for _, r := range out {
					convey.So(r.AthleteID, convey.ShouldNotEqual, "c")
					convey.So(r.AthleteID, convey.ShouldNotEqual, "d")
				}
			})
		})

		convey.Convey("When sorting", func() {
			convey.Convey("Then career total is descending", func() {
				convey.So(out[0].CareerTotal, convey.ShouldBeGreaterThan, out[1].CareerTotal)
				convey.So(out[1].AthleteID, convey.ShouldEqual, "b")
			})
		})
	})

	convey.Convey("Given no decay", t, func() {
		agg := career.NewAggregator(career.WithDecay(1))

		convey.Convey("Then the result is a plain minutes-weighted mean", func() {
			out := agg.Aggregate([]model.SeasonalRating{
				rated("a", 2019, 1000, 3.0, 80),
				rated("a", 2023, 3000, 1.0, 40),
			})
			convey.So(out[0].CareerTotal, convey.ShouldAlmostEqual, 1.5, 1e-12)
			convey.So(out[0].CareerPercentile, convey.ShouldAlmostEqual, 50, 1e-12)
		})
	})

	convey.Convey("Given an empty table", t, func() {
		convey.So(career.NewAggregator().Aggregate(nil), convey.ShouldBeEmpty)
	})
}
