// Package runlog appends per-item results and run markers to the persistent
// batch log file.
package runlog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
)

// Logger appends plain-text entries to the run log. The file handle is
// opened per write and closed immediately after, so external tools can read
// or rotate the log while a batch is running.
type Logger struct {
	path string
}

// New creates a Logger writing to the file at path. The file and its parent
// directory are expected to be creatable; the file itself is created on
// first write.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Start writes the run-start marker.
func (l *Logger) Start(runID string, total int) error {
	return l.appendLine(fmt.Sprintf("%s | run-start | %s | items=%d",
		timestamp(time.Now()), runID, total))
}

// Finish writes the run-end marker with the batch totals.
func (l *Logger) Finish(runID string, encoded, failed, skipped int) error {
	return l.appendLine(fmt.Sprintf("%s | run-end | %s | encoded=%d failed=%d skipped=%d",
		timestamp(time.Now()), runID, encoded, failed, skipped))
}

// Append writes one line for a completed item:
// timestamp, source path, result, exit code, elapsed wall time, and the
// failure reason when there is one.
func (l *Logger) Append(res job.RunResult) error {
	line := fmt.Sprintf("%s | %s | %s | exit=%d | elapsed=%s",
		timestamp(res.Timestamp),
		res.Item.Source,
		statusWord(res.Status),
		res.ExitCode,
		res.Elapsed.Round(100*time.Millisecond),
	)
	if res.Reason != "" {
		line += " | reason=" + flatten(res.Reason)
	}
	return l.appendLine(line)
}

// appendLine opens the log, appends one line, and releases the handle.
func (l *Logger) appendLine(line string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) // #nosec G302,G304 - log path comes from validated configuration
	if err != nil {
		return fmt.Errorf("runlog: open %s: %w", l.path, err)
	}

	if _, err := fmt.Fprintln(f, line); err != nil {
		_ = f.Close()
		return fmt.Errorf("runlog: write %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("runlog: close %s: %w", l.path, err)
	}
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// statusWord maps item states to the words the log format promises.
func statusWord(s job.Status) string {
	switch s {
	case job.StatusSucceeded:
		return "success"
	case job.StatusFailed:
		return "failure"
	case job.StatusSkipped:
		return "skipped"
	default:
		return strings.ToLower(string(s))
	}
}

// flatten keeps failure reasons on a single log line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
