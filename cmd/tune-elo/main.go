package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/squadrank/internal/adapters/tables"
	app "github.com/okian/squadrank/internal/app"
	"github.com/okian/squadrank/internal/config"
	"github.com/okian/squadrank/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv(config.FileEnv), "YAML config file (default: $SQUADRANK_CONFIG)")
		dataDir    = flag.String("data", "", "Input table directory (overrides data_dir)")
		margin     = flag.Bool("margin", false, "Scale K by goal margin while tuning")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFile(ctx, *configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *margin {
		cfg.Elo.MarginMultiplier = true
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	in, err := tables.Load(cfg.DataDir)
	if err != nil {
		log.Fatal(ctx, "loading tables", logger.Error(err))
	}
	for _, e := range in.Skipped {
		log.Warn(ctx, "malformed input row skipped", logger.Error(e))
	}
	svc, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		log.Fatal(ctx, "building service", logger.Error(err))
	}

	res, err := svc.Tune(ctx, in)
	if err != nil {
		log.Fatal(ctx, "tuning failed", logger.Error(err))
	}
	for _, c := range res.Cells {
		log.Info(ctx, "cell",
			logger.Float64("k_factor", c.KFactor),
			logger.Float64("home_advantage", c.HomeAdvantage),
			logger.Float64("brier", c.Brier),
			logger.Int("processed", c.Processed),
		)
	}
	log.Info(ctx, "best",
		logger.Float64("k_factor", res.Best.KFactor),
		logger.Float64("home_advantage", res.Best.HomeAdvantage),
		logger.Float64("brier", res.Best.Brier),
	)
}
