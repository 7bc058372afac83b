// Package job defines the unit of work for a transcoding batch: the WorkItem
// discovered in the input tree, its lifecycle transitions, and the RunResult
// recorded after each invocation.
package job

import (
	"errors"
	"time"
)

// Status represents the current state of a WorkItem.
type Status string

const (
	// StatusDiscovered indicates the item was found by enumeration and is
	// waiting its turn.
	StatusDiscovered Status = "DISCOVERED"
	// StatusInvoked indicates the item has been handed off for transcoding.
	StatusInvoked Status = "INVOKED"
	// StatusSucceeded indicates the invocation exited zero and the output
	// verified.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates a non-zero exit, a timeout, or a failed
	// verification.
	StatusFailed Status = "FAILED"
	// StatusSkipped indicates the output already existed and the item was
	// not re-encoded.
	StatusSkipped Status = "SKIPPED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusDiscovered: {StatusInvoked, StatusSkipped},
	StatusInvoked:    {StatusSucceeded, StatusFailed},
	StatusSucceeded:  {},
	StatusFailed:     {},
	StatusSkipped:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Params are the encoder settings stamped onto each WorkItem, copied from
// the configuration once per run.
type Params struct {
	// Encoder is the HandBrake encoder name after hardware mapping.
	Encoder string
	// Quality is the constant-quality value passed to the encoder.
	Quality int
	// AudioBitrate is the audio bitrate in kbps.
	AudioBitrate int
}

// WorkItem is one file queued for transcoding. Items are processed
// independently and sequentially; nothing is shared between them.
type WorkItem struct {
	// Source is the path to the input file.
	Source string
	// Output is the mirrored path under the output directory.
	Output string
	// RelPath is Source relative to the input directory.
	RelPath string
	// SourceSize is the input file size in bytes.
	SourceSize int64
	// Params are the encoder settings for this item.
	Params Params
	// Status is the current lifecycle state.
	Status Status
}

// New creates a WorkItem in the DISCOVERED state.
func New(source, output, relPath string, size int64, params Params) *WorkItem {
	return &WorkItem{
		Source:     source,
		Output:     output,
		RelPath:    relPath,
		SourceSize: size,
		Params:     params,
		Status:     StatusDiscovered,
	}
}

// transitionTo attempts to change the item status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (w *WorkItem) transitionTo(status Status) error {
	if !canTransition(w.Status, status) {
		return ErrInvalidTransition
	}
	w.Status = status
	return nil
}

// Invoke marks the item as handed to the external tool.
func (w *WorkItem) Invoke() error {
	return w.transitionTo(StatusInvoked)
}

// Succeed marks the item as transcoded and verified.
func (w *WorkItem) Succeed() error {
	return w.transitionTo(StatusSucceeded)
}

// Fail marks the item as failed.
func (w *WorkItem) Fail() error {
	return w.transitionTo(StatusFailed)
}

// Skip marks the item as skipped without invocation.
func (w *WorkItem) Skip() error {
	return w.transitionTo(StatusSkipped)
}

// IsTerminal returns true if the item is in a terminal state.
func (w *WorkItem) IsTerminal() bool {
	return w.Status == StatusSucceeded ||
		w.Status == StatusFailed ||
		w.Status == StatusSkipped
}

// RunResult records the outcome of one item. It is created after the
// invocation completes, appended to the run log, and never mutated.
type RunResult struct {
	// Item is the work item this result belongs to.
	Item *WorkItem
	// Status is the terminal state the item reached.
	Status Status
	// ExitCode is the external tool's exit code; zero for skipped items.
	ExitCode int
	// Elapsed is the wall time spent in the invocation.
	Elapsed time.Duration
	// Timestamp is when the result was recorded.
	Timestamp time.Time
	// Reason carries failure detail; empty on success and skip.
	Reason string
}

// NewSuccess records a verified zero-exit invocation.
func NewSuccess(item *WorkItem, elapsed time.Duration) RunResult {
	return RunResult{
		Item:      item,
		Status:    StatusSucceeded,
		Elapsed:   elapsed,
		Timestamp: time.Now(),
	}
}

// NewFailure records a failed invocation with the tool's exit code and a
// human-readable reason.
func NewFailure(item *WorkItem, exitCode int, elapsed time.Duration, reason string) RunResult {
	return RunResult{
		Item:      item,
		Status:    StatusFailed,
		ExitCode:  exitCode,
		Elapsed:   elapsed,
		Timestamp: time.Now(),
		Reason:    reason,
	}
}

// NewSkip records an item whose output already existed.
func NewSkip(item *WorkItem) RunResult {
	return RunResult{
		Item:      item,
		Status:    StatusSkipped,
		Timestamp: time.Now(),
	}
}
