// Package batch drives one sequential transcoding run: the skip check,
// invocation, verification, run log entry, and optional archive step for
// each discovered work item.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oliverdougherC/Simple-Transcoder/internal/batch/id"
	"github.com/oliverdougherC/Simple-Transcoder/internal/display"
	"github.com/oliverdougherC/Simple-Transcoder/internal/handbrake"
	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
	"github.com/oliverdougherC/Simple-Transcoder/internal/probe"
	"github.com/oliverdougherC/Simple-Transcoder/internal/runlog"
	"github.com/oliverdougherC/Simple-Transcoder/internal/storage"
)

// Invoker runs the external transcoder for one work item.
type Invoker interface {
	Transcode(ctx context.Context, item *job.WorkItem, onProgress handbrake.ProgressFunc) (handbrake.Result, error)
}

// Prober verifies finished outputs and inspects media metadata.
type Prober interface {
	Verify(ctx context.Context, input, output string) error
	Inspect(ctx context.Context, path string) (*probe.Info, error)
}

// Runner processes discovered work items one at a time. Item failures are
// recorded and the run moves on; only a cancelled context ends it early.
type Runner struct {
	invoker  Invoker
	prober   Prober
	library  *storage.Library
	runLog   *runlog.Logger
	archiver storage.Archiver
	logger   *slog.Logger
	console  io.Writer

	skipExisting bool
}

// Option is a function that configures a Runner.
type Option func(*Runner)

// WithArchiver sets the archive target for verified outputs.
func WithArchiver(a storage.Archiver) Option {
	return func(r *Runner) {
		if a != nil {
			r.archiver = a
		}
	}
}

// WithSkipExisting controls whether items with an existing output file are
// skipped instead of re-encoded.
func WithSkipExisting(skip bool) Option {
	return func(r *Runner) {
		r.skipExisting = skip
	}
}

// WithConsole sets the writer for the in-place progress line.
func WithConsole(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.console = w
		}
	}
}

// WithLogger sets the logger for run events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner. Archiving defaults to off and progress
// rendering to stdout.
func NewRunner(invoker Invoker, prober Prober, library *storage.Library, runLog *runlog.Logger, opts ...Option) *Runner {
	r := &Runner{
		invoker:      invoker,
		prober:       prober,
		library:      library,
		runLog:       runLog,
		archiver:     storage.NopArchiver{},
		logger:       slog.Default(),
		console:      os.Stdout,
		skipExisting: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes the items in order and returns the aggregate stats. The
// run log receives a start marker, one line per item, and an end marker.
func (r *Runner) Run(ctx context.Context, items []*job.WorkItem) RunStats {
	stats := RunStats{Total: len(items)}
	runID := id.Generate()

	r.logger.Info("run started",
		slog.String("run_id", runID),
		slog.Int("items", len(items)),
	)
	if err := r.runLog.Start(runID, len(items)); err != nil {
		r.logger.Warn("could not write run log", slog.String("error", err.Error()))
	}

	for i, item := range items {
		if ctx.Err() != nil {
			r.logger.Warn("run interrupted",
				slog.String("run_id", runID),
				slog.Int("remaining", len(items)-i),
			)
			break
		}
		r.processItem(ctx, item, i+1, len(items), &stats)
	}

	if err := r.runLog.Finish(runID, stats.Encoded, stats.Failed, stats.Skipped); err != nil {
		r.logger.Warn("could not write run log", slog.String("error", err.Error()))
	}

	r.logger.Info("run finished",
		slog.String("run_id", runID),
		slog.Int("total", stats.Total),
		slog.Int("encoded", stats.Encoded),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("uploaded", stats.Uploaded),
		slog.String("space_saved", display.FormatBytesWithSign(stats.SpaceSaved())),
	)

	return stats
}

// processItem takes one item through its full lifecycle. Every exit path
// leaves the item in a terminal state with a matching run log line.
func (r *Runner) processItem(ctx context.Context, item *job.WorkItem, index, total int, stats *RunStats) {
	name := filepath.Base(item.Source)
	r.logger.Info("processing item",
		slog.Int("index", index),
		slog.Int("total", total),
		slog.String("source", item.Source),
		slog.String("encoder", item.Params.Encoder),
	)

	if r.skipExisting {
		if _, err := os.Stat(item.Output); err == nil {
			r.transition(item, item.Skip)
			r.appendRunLog(job.NewSkip(item))
			stats.Skipped++
			r.logger.Info("output exists, skipping", slog.String("output", item.Output))
			return
		}
	}

	r.transition(item, item.Invoke)

	if err := r.library.EnsureOutputDir(item.Output); err != nil {
		r.recordFailure(item, job.NewFailure(item, 0, 0, err.Error()), stats)
		r.logger.Error("could not create output directory",
			slog.String("output", item.Output),
			slog.String("error", err.Error()),
		)
		return
	}

	var sawProgress bool
	onProgress := func(p handbrake.Progress) {
		sawProgress = true
		fmt.Fprintf(r.console, "\r[%d/%d] %s - Progress: %.1f%% | FPS: %.1f | Avg FPS: %.1f | ETA: %s",
			index, total, name, p.Percent, p.FPS, p.AvgFPS, p.ETA)
	}

	result, err := r.invoker.Transcode(ctx, item, onProgress)
	if sawProgress {
		fmt.Fprintln(r.console)
	}
	if err != nil {
		r.recordFailure(item, job.NewFailure(item, result.ExitCode, result.Elapsed, failureReason(err)), stats)
		r.logger.Error("transcode failed",
			slog.String("source", item.Source),
			slog.Int("exit_code", result.ExitCode),
			slog.String("error", failureReason(err)),
			slog.String("stderr", stderrOf(err)),
		)
		return
	}

	if err := r.prober.Verify(ctx, item.Source, item.Output); err != nil {
		// The tool exited zero, so the output is kept for inspection.
		r.recordFailure(item, job.NewFailure(item, result.ExitCode, result.Elapsed, err.Error()), stats)
		r.logger.Error("verification failed",
			slog.String("source", item.Source),
			slog.String("error", err.Error()),
		)
		return
	}

	r.transition(item, item.Succeed)
	r.appendRunLog(job.NewSuccess(item, result.Elapsed))
	stats.Encoded++
	stats.TotalInputBytes += item.SourceSize
	if fi, err := os.Stat(item.Output); err == nil {
		stats.TotalOutputBytes += fi.Size()
	}

	r.logger.Info("item encoded",
		slog.String("source", item.Source),
		slog.Duration("elapsed", result.Elapsed),
	)
	r.logComparison(ctx, item)
	r.archive(ctx, item, stats)
}

// archive uploads a verified output when an archive target is configured.
// Upload failures are warnings; the item stays encoded.
func (r *Runner) archive(ctx context.Context, item *job.WorkItem, stats *RunStats) {
	url, err := r.archiver.Upload(ctx, item.RelPath, item.Output)
	switch {
	case errors.Is(err, storage.ErrArchiveNotConfigured):
	case err != nil:
		r.logger.Warn("archive upload failed",
			slog.String("output", item.Output),
			slog.String("error", err.Error()),
		)
	default:
		stats.Uploaded++
		r.logger.Info("output archived", slog.String("url", url))
	}
}

// transition applies a lifecycle change. Items arrive fresh from
// enumeration, so a rejected transition is a programming error worth a log
// line rather than a dropped item.
func (r *Runner) transition(item *job.WorkItem, step func() error) {
	if err := step(); err != nil {
		r.logger.Error("lifecycle error",
			slog.String("source", item.Source),
			slog.String("status", string(item.Status)),
			slog.String("error", err.Error()),
		)
	}
}

// appendRunLog writes one result line; a failed write is reported but does
// not stop the batch.
func (r *Runner) appendRunLog(res job.RunResult) {
	if err := r.runLog.Append(res); err != nil {
		r.logger.Warn("could not write run log", slog.String("error", err.Error()))
	}
}

// recordFailure moves the item to FAILED, logs the result, and bumps the
// failure count. The batch continues with the next item.
func (r *Runner) recordFailure(item *job.WorkItem, res job.RunResult, stats *RunStats) {
	r.transition(item, item.Fail)
	r.appendRunLog(res)
	stats.Failed++
}

// failureReason extracts a compact cause suitable for a run log line. The
// full argument vector and tool output stay in the structured log.
func failureReason(err error) string {
	var invErr *handbrake.InvokeError
	if errors.As(err, &invErr) && invErr.Err != nil {
		return invErr.Err.Error()
	}
	return err.Error()
}

// stderrOf returns the tool output tail carried by an invocation error.
func stderrOf(err error) string {
	var invErr *handbrake.InvokeError
	if errors.As(err, &invErr) {
		return invErr.Stderr
	}
	return ""
}
