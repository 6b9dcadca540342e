package config_test

import (
	"errors"
	"testing"

	"github.com/okian/squadrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the engine defaults", func() {
			convey.So(cfg.Roster.TeamBudget, convey.ShouldEqual, 990)
			convey.So(cfg.Roster.CapMinutes, convey.ShouldEqual, 90)
			convey.So(cfg.Roster.MinSize, convey.ShouldEqual, 11)
			convey.So(cfg.Roster.MaxSize, convey.ShouldEqual, 15)
			convey.So(cfg.Elo.KFactor, convey.ShouldEqual, 15)
			convey.So(cfg.Elo.HomeAdvantage, convey.ShouldEqual, 20)
			convey.So(cfg.Elo.StartRating, convey.ShouldEqual, 1500)
			convey.So(cfg.Elo.MarginMultiplier, convey.ShouldBeFalse)
			convey.So(cfg.Seasonal.ShrinkMinutes, convey.ShouldEqual, 450)
			convey.So(cfg.Seasonal.MinMinutes, convey.ShouldEqual, 450)
			convey.So(cfg.Career.Decay, convey.ShouldEqual, 0.85)
			convey.So(cfg.Strength.CoverageThreshold, convey.ShouldEqual, 0.80)
			convey.So(cfg.Form.Window, convey.ShouldEqual, 5)
			convey.So(cfg.TeamAliases, convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several invalid settings", t, func() {
		cfg := config.New()
		cfg.Roster.MinSize = 16
		cfg.Career.Decay = 1.5
		cfg.Strength.CoverageThreshold = -0.1
		cfg.TeamMatch = "fuzzy"

		err := cfg.Validate()

		convey.Convey("Then every problem is reported at once", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)

			var verrs config.ValidationErrors
			convey.So(errors.As(err, &verrs), convey.ShouldBeTrue)
			convey.So(len(verrs), convey.ShouldEqual, 4)
			convey.So(err.Error(), convey.ShouldContainSubstring, "career.decay")
			convey.So(err.Error(), convey.ShouldContainSubstring, "team_match")
		})
	})

	convey.Convey("Given role weights for an unknown role", t, func() {
		cfg := config.New()
		cfg.Seasonal.RoleWeights = map[string]config.RoleWeights{
			"sweeper": {Attack: 1, Defense: 1, Negative: 1},
			"gk":      {Attack: 0.5, Defense: -1, Negative: 1},
		}

		err := cfg.Validate()

		convey.Convey("Then the label and the negative scale are both reported", func() {
			var verrs config.ValidationErrors
			convey.So(errors.As(err, &verrs), convey.ShouldBeTrue)
			convey.So(len(verrs), convey.ShouldEqual, 2)
			convey.So(err.Error(), convey.ShouldContainSubstring, `unknown role "sweeper"`)
			convey.So(err.Error(), convey.ShouldContainSubstring, "seasonal.role_weights.gk")
		})
	})

	convey.Convey("Given a zero home advantage", t, func() {
		cfg := config.New()
		cfg.Elo.HomeAdvantage = 0

		convey.Convey("Then it is accepted", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
