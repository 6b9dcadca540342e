package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the squadrank namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "squadrank")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.matchesIngested.Add(3)

			Convey("Then the metrics carry the custom names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_matches_ingested_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty option values are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "squadrank")
				So(manager.subsystem, ShouldEqual, "pipeline")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ingest metrics", func() {
			before := testutil.ToFloat64(globalManager.matchesIngested)
			RecordMatchesIngested(4)
			RecordMatchesDuplicate(1)
			RecordStatsRowsIngested(10)

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.matchesIngested)-before, ShouldEqual, 4)
			})
		})

		Convey("When recording a rating replay", func() {
			before := testutil.ToFloat64(globalManager.eloSkipped.WithLabelValues("no_roster"))
			RecordEloReplay(10, 2, 1, 0.21)

			Convey("Then the skip reasons and loss are recorded", func() {
				So(testutil.ToFloat64(globalManager.eloSkipped.WithLabelValues("no_roster"))-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.eloBrier), ShouldEqual, 0.21)
			})
		})

		Convey("When updating gauges", func() {
			UpdateSeasonalRatings(40, 25)
			UpdateCareerRatings(12)
			UpdateBoardAthletes(30)
			RecordStrength("rolling", 8, 0.75)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.seasonalElig), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.careerRatings), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.boardAthletes), ShouldEqual, 30)
				So(testutil.ToFloat64(globalManager.strengthCoverage.WithLabelValues("rolling")), ShouldEqual, 0.75)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordRosters(2, 1, 0)
					RecordRosterIterations(3)
					RecordUnknownRoles(1)
					RecordBoardUpdate()
					RecordBoardQueryLatency(0.2)
					RecordRowsWritten("team_strength", 8)
					RecordStageDuration("elo", 0.05)
					RecordRun(1.5, 1700000000)
					RecordErrorByComponent("tables", "missing_column")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a metrics textfile target", t, func() {
		Convey("When the path is empty", func() {
			err := WriteTextfile("")

			Convey("Then it should fail", func() {
				So(err, ShouldEqual, ErrNoPath)
			})
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "squadrank.prom"))

			Convey("Then the write error is wrapped", func() {
				So(errors.Is(err, ErrWriteFailed), ShouldBeTrue)
			})
		})

		Convey("When the path is writable", func() {
			RecordMatchesIngested(1)
			path := filepath.Join(t.TempDir(), "squadrank.prom")
			err := WriteTextfile(path)

			Convey("Then the exposition text is written", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(data), "squadrank_pipeline_matches_ingested_total"), ShouldBeTrue)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("Then it is shared and gatherable", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
