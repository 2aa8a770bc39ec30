// Copyright © 2024 Mutker Telag <witty.text5011@fastmail.com>
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/minerdriver/internal/config"
	"codeberg.org/mutker/minerdriver/internal/device"
	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/forwarder"
	"codeberg.org/mutker/minerdriver/internal/logger"
	"codeberg.org/mutker/minerdriver/internal/metrics"
	"codeberg.org/mutker/minerdriver/internal/pid"
	"codeberg.org/mutker/minerdriver/internal/scheduler"
)

const (
	logFilePerm     = 0o644
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer
	if cfg.Output != "" {
		f, err := openOutput(cfg.Output)
		if err != nil {
			fmt.Printf("failed to open output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	logger.Init(cfg.Level(), out, logger.IsService())
	logger.Info().Str("config", cfg.ConfigFile).Msg("Initializing...")

	if err := pid.Write(cfg.PIDFile); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Str("pid_file", cfg.PIDFile).Msg("Cannot start")
		}
		logger.Fatal().Err(err).Msg("Cannot start")
	}
	defer removePID(cfg.PIDFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var metricsServer *metrics.Server
	if cfg.Metrics().Enabled() {
		metricsServer = metrics.NewServer(cfg.Metrics())
		metricsServer.Start()
	}

	sched := scheduler.New(
		cfg.Scheduler(),
		cfg.Roster(),
		device.NewClient(cfg.Device()),
		forwarder.New(cfg.Forwarder()),
	)

	if err := sched.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to stop metrics server")
		}
	}
	logger.Info().Msg("Exiting...")
}

// openOutput opens path for appending log output.
func openOutput(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrOpenLogOutput, err)
	}
	return f, nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func removePID(path string) {
	if err := pid.Remove(path); err != nil {
		logger.Error().Err(err).Msg("failed to remove pid file")
	}
}
