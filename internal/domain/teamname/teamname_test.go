package teamname_test

import (
	"testing"

	"github.com/okian/squadrank/internal/domain/model"
	"github.com/okian/squadrank/internal/domain/teamname"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizer(t *testing.T) {
	Convey("Given the default alias table", t, func() {
		n := teamname.NewNormalizer(teamname.DefaultAliases())

		Convey("When canonicalizing known aliases", func() {
			Convey("Then every spelling maps to one label", func() {
				So(n.Canonical("HFX Wanderers FC"), ShouldEqual, "Wanderers")
				So(n.Canonical("  York United "), ShouldEqual, "York")
				So(n.Canonical("Atletico Ottawa"), ShouldEqual, "Atlético")
			})
		})

		Convey("When the label is unknown", func() {
			Convey("Then it is returned trimmed", func() {
				So(n.Canonical(" Vancouver FC "), ShouldEqual, "Vancouver FC")
			})
		})
	})

	Convey("Given a nil normalizer", t, func() {
		var n *teamname.Normalizer

		Convey("Then it only trims", func() {
			So(n.Canonical(" Forge "), ShouldEqual, "Forge")
		})
	})
}

func TestMatcher(t *testing.T) {
	match := model.Match{HomeTeam: "York United", AwayTeam: "Forge FC"}
	norm := teamname.NewNormalizer(teamname.DefaultAliases())

	Convey("Given an exact matcher", t, func() {
		mt := teamname.NewMatcher(norm, teamname.ModeExact)

		Convey("When the label is an alias of the home team", func() {
			side, ok := mt.Side("York", match)

			Convey("Then it resolves to home", func() {
				So(ok, ShouldBeTrue)
				So(side, ShouldEqual, model.Home)
			})
		})

		Convey("When the label only partially matches", func() {
			_, ok := mt.Side("For", match)

			Convey("Then it is excluded", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the label matches neither side", func() {
			_, ok := mt.Side("Pacific", match)

			Convey("Then it is excluded", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a loose matcher", t, func() {
		mt := teamname.NewMatcher(norm, teamname.ModeLoose)

		Convey("When the label is a substring of the away team", func() {
			side, ok := mt.Side("Forge Football Club", model.Match{HomeTeam: "Cavalry", AwayTeam: "Forge"})

			Convey("Then it resolves to away", func() {
				So(ok, ShouldBeTrue)
				So(side, ShouldEqual, model.Away)
			})
		})

		Convey("When the label is empty", func() {
			_, ok := mt.Side("  ", match)

			Convey("Then it is excluded", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}
