// Package bootstrap provides dependency initialization for the transcoding
// batch driver.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oliverdougherC/Simple-Transcoder/internal/batch"
	"github.com/oliverdougherC/Simple-Transcoder/internal/config"
	"github.com/oliverdougherC/Simple-Transcoder/internal/handbrake"
	"github.com/oliverdougherC/Simple-Transcoder/internal/hwaccel"
	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
	"github.com/oliverdougherC/Simple-Transcoder/internal/probe"
	"github.com/oliverdougherC/Simple-Transcoder/internal/runlog"
	"github.com/oliverdougherC/Simple-Transcoder/internal/scan"
	"github.com/oliverdougherC/Simple-Transcoder/internal/storage"
)

// Dependencies holds all initialized dependencies for one batch run.
type Dependencies struct {
	Library    *storage.Library
	Enumerator *scan.Enumerator
	Invoker    *handbrake.Invoker
	Prober     *probe.Prober
	Runner     *batch.Runner

	// Hardware is the acceleration vendor detected at startup.
	Hardware hwaccel.Kind
	// Encoder is the HandBrake encoder selected for the run.
	Encoder string
}

// NewDependencies creates and initializes all dependencies for the
// application. It prepares the library layout on disk, detects encoding
// hardware, and wires the batch runner.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	library, err := storage.NewLibrary(cfg.InputDirectory, cfg.OutputDirectory, cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("prepare library: %w", err)
	}
	if err := library.EnsureLayout(); err != nil {
		return nil, fmt.Errorf("prepare library: %w", err)
	}

	hardware := hwaccel.Detect(ctx)
	encoder := hwaccel.Encoder(cfg.VideoCodec, hardware)
	if !hwaccel.Supported(encoder) {
		logger.Warn("encoder not supported, falling back",
			slog.String("encoder", encoder),
			slog.String("fallback", hwaccel.Fallback),
		)
		encoder = hwaccel.Fallback
	}
	logger.Info("encoder selected",
		slog.String("hardware", string(hardware)),
		slog.String("codec", cfg.VideoCodec),
		slog.String("encoder", encoder),
	)

	params := job.Params{
		Encoder:      encoder,
		Quality:      cfg.Quality,
		AudioBitrate: cfg.AudioBitrate,
	}

	enumerator := scan.New(cfg.InputDirectory, cfg.OutputDirectory, cfg.FileExtensions, params)

	invoker := handbrake.NewInvoker(cfg.HandBrakePath, hardware,
		handbrake.WithTimeout(cfg.Timeout()),
		handbrake.WithLogger(logger),
	)
	prober := probe.NewProber(cfg.FFprobePath)

	archiver, err := initArchiver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := batch.NewRunner(invoker, prober, library, runlog.New(cfg.LogPath),
		batch.WithArchiver(archiver),
		batch.WithSkipExisting(cfg.SkipExisting),
		batch.WithLogger(logger),
	)

	return &Dependencies{
		Library:    library,
		Enumerator: enumerator,
		Invoker:    invoker,
		Prober:     prober,
		Runner:     runner,
		Hardware:   hardware,
		Encoder:    encoder,
	}, nil
}

// CheckTools verifies the external binaries a batch needs are runnable.
// Missing tools are fatal startup errors.
func (d *Dependencies) CheckTools(ctx context.Context) error {
	if err := d.Invoker.CheckInstalled(ctx); err != nil {
		return err
	}
	if err := d.Prober.CheckInstalled(); err != nil {
		return err
	}
	return nil
}

// initArchiver creates the archive backend based on configuration. Without
// an S3 bucket the batch runs with archiving disabled.
func initArchiver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Archiver, error) {
	if !cfg.S3Enabled() {
		return storage.NopArchiver{}, nil
	}

	s3Cfg := storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
	archive, err := storage.NewS3Archive(ctx, s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("create S3 archive: %w", err)
	}
	logger.Info("S3 archive configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return archive, nil
}
