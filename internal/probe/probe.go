// Package probe inspects media files with ffprobe and verifies transcoded
// outputs against their sources.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DurationTolerance is the maximum allowed drift, in seconds, between input
// and output container durations before verification fails.
const DurationTolerance = 1.0

// Static errors for probe operations.
var (
	// ErrNotInstalled is returned when the ffprobe binary cannot be found.
	ErrNotInstalled = errors.New("probe: ffprobe not found")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrOutputMissing is returned when the transcoded output does not exist.
	ErrOutputMissing = errors.New("output file does not exist")
	// ErrOutputEmpty is returned when the transcoded output has no content.
	ErrOutputEmpty = errors.New("output file is empty")
	// ErrDurationMismatch is returned when the output duration drifted from
	// the input beyond DurationTolerance.
	ErrDurationMismatch = errors.New("duration mismatch")
)

// Prober runs ffprobe against media files.
type Prober struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewProber creates a new Prober.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// CheckInstalled verifies the ffprobe binary can be found.
func (p *Prober) CheckInstalled() error {
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return nil
}

// Info is the subset of ffprobe's JSON output this driver cares about.
type Info struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one elementary stream of a media file.
type Stream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Format describes container-level metadata. ffprobe reports numeric fields
// as strings.
type Format struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
	Size     string `json:"size"`
}

// VideoStream returns the first video stream, or nil if there is none.
func (i *Info) VideoStream() *Stream {
	return i.streamOfType("video")
}

// AudioStream returns the first audio stream, or nil if there is none.
func (i *Info) AudioStream() *Stream {
	return i.streamOfType("audio")
}

func (i *Info) streamOfType(codecType string) *Stream {
	for idx := range i.Streams {
		if i.Streams[idx].CodecType == codecType {
			return &i.Streams[idx]
		}
	}
	return nil
}

// DurationSeconds parses the container duration.
func (i *Info) DurationSeconds() (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(i.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", i.Format.Duration, err)
	}
	return d, nil
}

// Inspect returns stream and format metadata for the file at path.
func (p *Prober) Inspect(ctx context.Context, path string) (*Info, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var info Info
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	return &info, nil
}

// Duration returns the duration in seconds of a media file.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// Verify checks that the transcoded output exists, is non-empty, and kept
// the source's duration within DurationTolerance seconds.
func (p *Prober) Verify(ctx context.Context, input, output string) error {
	fi, err := os.Stat(output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOutputMissing, output)
		}
		return fmt.Errorf("stat output: %w", err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrOutputEmpty, output)
	}

	inputDuration, err := p.Duration(ctx, input)
	if err != nil {
		return fmt.Errorf("probe input: %w", err)
	}
	outputDuration, err := p.Duration(ctx, output)
	if err != nil {
		return fmt.Errorf("probe output: %w", err)
	}

	if diff := math.Abs(inputDuration - outputDuration); diff > DurationTolerance {
		return fmt.Errorf("%w: input %.2fs, output %.2fs", ErrDurationMismatch, inputDuration, outputDuration)
	}

	return nil
}
