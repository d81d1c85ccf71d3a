package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"heartstream/internal/config"
	"heartstream/internal/dataset"
	"heartstream/internal/inference"
	"heartstream/internal/metrics"
	"heartstream/internal/replay"
	"heartstream/internal/repository"
	"heartstream/internal/server"
	"heartstream/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML configuration file")
	delay := flag.Int64("delay", -1, "inter-sample pacing in seconds (overrides config; 0 replays as fast as possible)")
	maxSamples := flag.Int64("max-samples", -1, "stop after this many samples (overrides config; negative = unbounded)")
	source := flag.String("source", "", "inference variant: remote or local (overrides config)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return 1
	}

	// CLI flags take precedence over the config file.
	if *delay >= 0 {
		cfg.Stream.IntervalSeconds = *delay
	}
	if flagPassed("max-samples") {
		cfg.Stream.MaxSamples = *maxSamples
	}
	if *source != "" {
		cfg.Inference.Mode = *source
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return 1
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Resolve the ordered validation samples. An unreadable dataset is fatal.
	records, err := dataset.Load(cfg.Stream.DataPath, logger)
	if err != nil {
		logger.Error("Failed to load validation dataset", zap.Error(err))
		return 1
	}

	// Resolve the inference source. The variant is fixed for the whole
	// session; an unavailable source at startup is fatal.
	var src inference.Source
	switch cfg.Inference.Mode {
	case "remote":
		src, err = inference.NewRemoteSource(ctx, cfg.Inference.RemoteURL,
			time.Duration(cfg.Inference.TimeoutSeconds)*time.Second, logger)
	case "local":
		src, err = inference.NewLocalSource(cfg.Inference.ArtifactPath, logger)
	}
	if err != nil {
		logger.Error("Failed to initialize inference source",
			zap.String("mode", cfg.Inference.Mode),
			zap.Error(err))
		return 1
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	predictionRepo := repository.NewPredictionRepository(db, logger)

	// Initialize telemetry client
	tbClient := telemetry.NewClient(
		cfg.Telemetry.Host,
		cfg.Telemetry.DeviceToken,
		time.Duration(cfg.Telemetry.TimeoutSeconds)*time.Second,
		cfg.Telemetry.MaxRetries,
		logger,
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	session := replay.NewSession(src, predictionRepo, tbClient, replay.Options{
		Interval:         time.Duration(cfg.Stream.IntervalSeconds) * time.Second,
		MaxSamples:       cfg.Stream.MaxSamples,
		InferenceTimeout: time.Duration(cfg.Inference.TimeoutSeconds) * time.Second,
	}, m, logger)

	// Run the status server in a goroutine (if enabled)
	if cfg.Server.Enabled {
		srv := server.NewServer(session.ID(), registry, logger)
		session.OnSnapshot(srv.Observe)
		go srv.Run(cfg.Server.Port)
	}

	state, err := session.Run(ctx, records)
	if state == replay.StateAborted {
		logger.Error("Replay session aborted", zap.Error(err))
		return 1
	}

	logger.Info("Replay session ended", zap.String("state", state.String()))
	return 0
}

// flagPassed reports whether the named flag was set on the command line, so
// an explicit "-max-samples 0" can be told apart from the default.
func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
