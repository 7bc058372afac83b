// Package handbrake builds HandBrakeCLI argument vectors and runs the tool
// as a child process, one work item at a time.
package handbrake

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/oliverdougherC/Simple-Transcoder/internal/hwaccel"
	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
)

// stderrTailLines caps how much tool output an InvokeError carries.
const stderrTailLines = 20

// ErrNotInstalled is returned when the HandBrakeCLI binary cannot be run.
var ErrNotInstalled = errors.New("handbrake: HandBrakeCLI not found")

// InvokeError represents a failed HandBrakeCLI run, including the tail of
// the tool's output.
type InvokeError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("handbrake error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// Result captures a completed invocation. It is populated for failures too,
// so callers can record the exit code and wall time of a failed item.
type Result struct {
	ExitCode int
	Elapsed  time.Duration
}

// vendorPresets carries the encoder tuning flags added per hardware vendor.
var vendorPresets = map[hwaccel.Kind]struct {
	Preset  string
	Profile string
	Level   string
}{
	hwaccel.KindNvidia: {Preset: "slow", Profile: "high", Level: "auto"},
	hwaccel.KindIntel:  {Preset: "balanced", Profile: "main", Level: "auto"},
	hwaccel.KindAMD:    {Preset: "slow", Profile: "main", Level: "auto"},
}

// Invoker runs HandBrakeCLI for work items.
type Invoker struct {
	// handbrakePath is the path to the HandBrakeCLI binary. Defaults to
	// "HandBrakeCLI".
	handbrakePath string
	hardware      hwaccel.Kind
	timeout       time.Duration
	logger        *slog.Logger
}

// Option is a function that configures an Invoker.
type Option func(*Invoker)

// WithTimeout sets a per-item timeout. The child process is killed when it
// elapses and the item records as failed. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		inv.timeout = d
	}
}

// WithLogger sets the logger used for debug output of the tool's lines.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		inv.logger = logger
	}
}

// NewInvoker creates a new Invoker for the detected hardware.
// If handbrakePath is empty, it defaults to "HandBrakeCLI" (found via PATH).
func NewInvoker(handbrakePath string, hardware hwaccel.Kind, opts ...Option) *Invoker {
	if handbrakePath == "" {
		handbrakePath = "HandBrakeCLI"
	}
	inv := &Invoker{
		handbrakePath: handbrakePath,
		hardware:      hardware,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// BuildArgs constructs the HandBrakeCLI argument vector for one work item.
func (inv *Invoker) BuildArgs(item *job.WorkItem) []string {
	args := []string{
		"-i", item.Source,
		"-o", item.Output,
		"-e", item.Params.Encoder,
		"-q", strconv.Itoa(item.Params.Quality),
		"-B", strconv.Itoa(item.Params.AudioBitrate),
		"-t", "1",
	}

	if preset, ok := vendorPresets[inv.hardware]; ok {
		args = append(args,
			"--encoder-preset", preset.Preset,
			"--encoder-profile", preset.Profile,
			"--encoder-level", preset.Level,
		)
	}

	return args
}

// Transcode runs HandBrakeCLI for the item and blocks until the child
// process exits. Progress updates parsed from the tool's output are passed
// to onProgress (which may be nil); every raw line is logged at debug level.
// On any failure the partial output file is removed best-effort and the
// returned Result still carries the exit code and elapsed wall time.
func (inv *Invoker) Transcode(ctx context.Context, item *job.WorkItem, onProgress ProgressFunc) (Result, error) {
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	args := inv.BuildArgs(item)
	inv.logger.Debug("running HandBrakeCLI",
		slog.String("source", item.Source),
		slog.String("args", strings.Join(args, " ")),
	)

	// #nosec G204 - handbrakePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, inv.handbrakePath, args...)

	// HandBrakeCLI interleaves progress on stdout with log lines on stderr;
	// both feed the same line consumer, as the tail of either is wanted in
	// an InvokeError.
	pr, pw := io.Pipe()
	tail := newTailBuffer(stderrTailLines)
	cmd.Stdout = pw
	cmd.Stderr = pw

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return Result{}, &InvokeError{Args: args, Err: err}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		inv.consumeOutput(pr, tail, onProgress)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	<-done

	res := Result{
		ExitCode: exitCode(waitErr),
		Elapsed:  time.Since(start),
	}

	if waitErr != nil {
		inv.removePartial(item.Output)
		err := waitErr
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return res, &InvokeError{
			Args:     args,
			Stderr:   tail.String(),
			ExitCode: res.ExitCode,
			Err:      err,
		}
	}

	return res, nil
}

// CheckInstalled verifies the HandBrakeCLI binary can be executed. A
// non-zero exit still proves the binary is runnable.
func (inv *Invoker) CheckInstalled(ctx context.Context) error {
	// #nosec G204 - handbrakePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, inv.handbrakePath, "--version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return nil
}

// consumeOutput scans the merged tool output line by line, feeding progress
// updates to onProgress and keeping a tail for error reporting. The reader
// is always drained to the end so the child never blocks writing to the
// pipe.
func (inv *Invoker) consumeOutput(r io.Reader, tail *tailBuffer, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanToolLines)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tail.Add(line)
		if p, ok := ParseProgress(line); ok && onProgress != nil {
			onProgress(p)
		}
		inv.logger.Debug(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		inv.logger.Debug("tool output scan stopped", slog.String("error", err.Error()))
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanToolLines splits tool output on \n, \r\n, or a bare \r. HandBrakeCLI
// rewrites its progress display in place, so each update arrives terminated
// by a carriage return with no newline.
func scanToolLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	i := bytes.IndexAny(data, "\r\n")
	if i < 0 {
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
	if data[i] == '\r' {
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if i+1 == len(data) && !atEOF {
			// Hold the trailing \r until the next byte shows whether
			// it belongs to a \r\n pair.
			return 0, nil, nil
		}
	}
	return i + 1, data[:i], nil
}

// removePartial deletes whatever the tool left behind for a failed item.
func (inv *Invoker) removePartial(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		inv.logger.Debug("could not remove partial output",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// exitCode extracts the child's exit code from cmd.Wait's error. A run
// that never produced an exit status reports -1.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Add(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	return strings.Join(b.lines, "\n")
}
