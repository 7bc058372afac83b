// Package main provides the entry point for the simple-transcoder batch
// driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oliverdougherC/Simple-Transcoder/internal/bootstrap"
	"github.com/oliverdougherC/Simple-Transcoder/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one batch. It returns an error only for fatal startup
// problems; individual item failures are recorded in the run log and leave
// the exit code at zero.
func run() error {
	configPath := flag.String("config", config.DefaultPath, "path to the configuration file")
	checkOnly := flag.Bool("check", false, "verify configuration and external tools, then exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("simple-transcoder " + version)
		return nil
	}

	// A signal cancels the context; the runner stops after the in-flight
	// item and the child process is killed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting simple-transcoder",
		slog.String("version", version),
		slog.String("input", cfg.InputDirectory),
		slog.String("output", cfg.OutputDirectory),
		slog.String("codec", cfg.VideoCodec),
		slog.Int("quality", cfg.Quality),
		slog.Int("audio_bitrate", cfg.AudioBitrate),
		slog.String("log_path", cfg.LogPath),
		slog.Bool("skip_existing", cfg.SkipExisting),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	if err := deps.CheckTools(ctx); err != nil {
		return err
	}
	if *checkOnly {
		logger.Info("all checks passed",
			slog.String("hardware", string(deps.Hardware)),
			slog.String("encoder", deps.Encoder),
		)
		return nil
	}

	items, err := deps.Enumerator.Enumerate()
	if err != nil {
		return fmt.Errorf("enumerate input: %w", err)
	}
	if len(items) == 0 {
		logger.Info("no transcodable files found",
			slog.String("input", cfg.InputDirectory),
		)
		return nil
	}

	stats := deps.Runner.Run(ctx, items)

	logger.Info("batch complete",
		slog.Int("total", stats.Total),
		slog.Int("encoded", stats.Encoded),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)
	return nil
}
