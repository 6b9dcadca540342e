package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/squadrank/internal/adapters/postgres"
	"github.com/okian/squadrank/internal/adapters/tables"
	app "github.com/okian/squadrank/internal/app"
	"github.com/okian/squadrank/internal/config"
	"github.com/okian/squadrank/pkg/logger"
	"github.com/okian/squadrank/pkg/metrics"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv(config.FileEnv), "YAML config file (default: $SQUADRANK_CONFIG)")
		dataDir    = flag.String("data", "", "Input table directory (overrides data_dir)")
		outDir     = flag.String("out", "", "Output table directory (overrides out_dir)")
	)
	flag.Parse()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.LoadFile(ctx, *configPath)
	if err != nil {
		// Logger isn't available until the config is known
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	in, err := tables.Load(cfg.DataDir)
	if err != nil {
		metrics.RecordErrorByComponent("tables", "load")
		return err
	}
	for _, e := range in.Skipped {
		log.Warn(ctx, "malformed input row skipped", logger.Error(e))
	}

	opts := []app.Option{app.WithLogger(log)}
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			metrics.RecordErrorByComponent("postgres", "connect")
			return err
		}
		defer pool.Close()

		sink, err := postgres.NewSink(pool,
			postgres.WithSchema(cfg.PostgresSchema),
			postgres.WithLogger(log.Named("postgres")),
		)
		if err != nil {
			return err
		}
		if err := sink.EnsureSchema(ctx); err != nil {
			metrics.RecordErrorByComponent("postgres", "schema")
			return err
		}
		opts = append(opts, app.WithSink(sink))
	}

	svc, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	out, rep, err := svc.Run(ctx, in)
	if err != nil {
		return err
	}

	if err := tables.NewWriter(cfg.OutDir).WriteAll(out); err != nil {
		metrics.RecordErrorByComponent("tables", "write")
		return err
	}
	log.Info(ctx, "tables written",
		logger.String("run_id", rep.RunID.String()),
		logger.String("out_dir", cfg.OutDir),
	)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "metrics textfile not written", logger.Error(err))
		}
	}
	return nil
}
