package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	stagecore "github.com/cas-centre/stagecore"
	"github.com/cas-centre/stagecore/internal/config"
	"github.com/cas-centre/stagecore/internal/dal"
	"github.com/cas-centre/stagecore/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/stagecore/stagecore.conf", "Path to KEY=VALUE config file")
		sim        = flag.Bool("sim", false, "Use the simulated DAL driver instead of the vendor library")
		verbose    = flag.Bool("v", false, "Verbose (debug-level) logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logConfig := logging.DefaultConfig()
	if *verbose || cfg.LogLevel == "debug" {
		logConfig.Level = logging.LevelDebug
	} else if cfg.LogLevel == "warn" {
		logConfig.Level = logging.LevelWarn
	} else if cfg.LogLevel == "error" {
		logConfig.Level = logging.LevelError
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	// No vendor motion-controller driver is wired into this build (SPEC_FULL.md
	// §1: the vendor library is an external capability, out of scope here).
	// -sim is therefore required rather than a convenience toggle; fail fast
	// with a diagnostic instead of silently falling back to the simulated
	// driver, per the fatal-initialization-failure policy of SPEC_FULL.md §7.
	if !*sim {
		logger.Error("no vendor DAL driver is wired into this build; rerun with -sim")
		os.Exit(1)
	}
	logger.Info("using simulated DAL driver", "controller_a", cfg.ControllerA, "controller_b", cfg.ControllerB)
	driver := dal.NewSimDriver(cfg.ControllerA, cfg.ControllerB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, err := stagecore.CreateAndServe(ctx, stagecore.Params{
		Config: cfg,
		Driver: driver,
	}, &stagecore.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to start stagecore", "error", err)
		os.Exit(1)
	}

	logger.Info("stagecore started",
		"broker", cfg.MQTTBroker,
		"sample_rate_hz", cfg.SampleRateHz,
		"controller_a", cfg.ControllerA,
		"controller_b", cfg.ControllerB)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	cleanupDone := make(chan struct{})
	go func() {
		if err := stagecore.StopAndDelete(context.Background(), core); err != nil {
			logger.Error("error during shutdown", "error", err)
		} else {
			logger.Info("stagecore stopped cleanly")
		}
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
	case <-time.After(2 * time.Second):
		logger.Warn("shutdown cleanup timed out, forcing exit")
	}
}
