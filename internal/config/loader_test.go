package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/squadrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "data")
				convey.So(cfg.Elo.KFactor, convey.ShouldEqual, 15)
			})
		})

		convey.Convey("When loading config with nested environment variables", func() {
			_ = os.Setenv("SQUADRANK_LOG_LEVEL", "debug")
			_ = os.Setenv("SQUADRANK_ELO__K_FACTOR", "25")
			_ = os.Setenv("SQUADRANK_ELO__MARGIN_MULTIPLIER", "true")
			_ = os.Setenv("SQUADRANK_CAREER__DECAY", "0.9")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Elo.KFactor, convey.ShouldEqual, 25)
				convey.So(cfg.Elo.MarginMultiplier, convey.ShouldBeTrue)
				convey.So(cfg.Career.Decay, convey.ShouldEqual, 0.9)
				convey.So(cfg.Elo.HomeAdvantage, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
data_dir: /srv/cpl
elo:
  home_advantage: 35
  tune_k_factors: [10, 20]
seasonal:
  min_minutes: 300
team_aliases:
  "Cavalry": "Cavalry FC"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SQUADRANK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values merge over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/srv/cpl")
				convey.So(cfg.Elo.HomeAdvantage, convey.ShouldEqual, 35)
				convey.So(cfg.Elo.KFactor, convey.ShouldEqual, 15)
				convey.So(cfg.Elo.TuneKFactors, convey.ShouldResemble, []float64{10, 20})
				convey.So(cfg.Seasonal.MinMinutes, convey.ShouldEqual, 300)
				convey.So(cfg.Seasonal.ShrinkMinutes, convey.ShouldEqual, 450)
				convey.So(cfg.TeamAliases["Cavalry"], convey.ShouldEqual, "Cavalry FC")
			})
		})

		convey.Convey("When the YAML file tunes role weights and watches athletes", func() {
			tmpFile := createTempConfigFile(`
board_watch: [p-101, p-202]
seasonal:
  role_weights:
    midfielder:
      attack: 2
      defense: 1
      negative: 0.5
      overrides:
        KP_per_game: 1.8
`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then the role entry and watch list are decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BoardWatch, convey.ShouldResemble, []string{"p-101", "p-202"})
				w, ok := cfg.Seasonal.RoleWeights["midfielder"]
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(w.Attack, convey.ShouldEqual, 2)
				convey.So(w.Negative, convey.ShouldEqual, 0.5)
				convey.So(w.Overrides["KP_per_game"], convey.ShouldEqual, 1.8)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("elo:\n  k_factor: 30\n  scale: 500\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SQUADRANK_CONFIG", tmpFile)
			_ = os.Setenv("SQUADRANK_ELO__K_FACTOR", "40")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Elo.KFactor, convey.ShouldEqual, 40)
				convey.So(cfg.Elo.Scale, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SQUADRANK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.LoadFile(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When an override fails validation", func() {
			_ = os.Setenv("SQUADRANK_STRENGTH__COVERAGE_THRESHOLD", "1.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "strength.coverage_threshold")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "squadrank-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
