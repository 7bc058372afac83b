package job

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	params := Params{Encoder: "x264", Quality: 22, AudioBitrate: 160}
	item := New("/in/show/a.mp4", "/out/show/a.mp4", "show/a.mp4", 2048, params)

	if item.Status != StatusDiscovered {
		t.Errorf("expected status %s, got %s", StatusDiscovered, item.Status)
	}
	if item.Source != "/in/show/a.mp4" {
		t.Errorf("unexpected source: %s", item.Source)
	}
	if item.Output != "/out/show/a.mp4" {
		t.Errorf("unexpected output: %s", item.Output)
	}
	if item.RelPath != "show/a.mp4" {
		t.Errorf("unexpected rel path: %s", item.RelPath)
	}
	if item.SourceSize != 2048 {
		t.Errorf("unexpected size: %d", item.SourceSize)
	}
	if item.Params != params {
		t.Errorf("unexpected params: %+v", item.Params)
	}
}

func TestWorkItem_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		// Valid transitions from DISCOVERED
		{"DISCOVERED to INVOKED", StatusDiscovered, StatusInvoked, false},
		{"DISCOVERED to SKIPPED", StatusDiscovered, StatusSkipped, false},
		// Valid transitions from INVOKED
		{"INVOKED to SUCCEEDED", StatusInvoked, StatusSucceeded, false},
		{"INVOKED to FAILED", StatusInvoked, StatusFailed, false},
		// Invalid transitions
		{"DISCOVERED to SUCCEEDED", StatusDiscovered, StatusSucceeded, true},
		{"DISCOVERED to FAILED", StatusDiscovered, StatusFailed, true},
		{"INVOKED to SKIPPED", StatusInvoked, StatusSkipped, true},
		{"SUCCEEDED to INVOKED", StatusSucceeded, StatusInvoked, true},
		{"FAILED to INVOKED", StatusFailed, StatusInvoked, true},
		{"SKIPPED to INVOKED", StatusSkipped, StatusInvoked, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
			item.Status = tt.from

			err := item.transitionTo(tt.to)

			if tt.wantErr && err == nil {
				t.Errorf("expected error for transition %s -> %s", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestWorkItem_Lifecycle(t *testing.T) {
	t.Run("invoke then succeed", func(t *testing.T) {
		item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
		if err := item.Invoke(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := item.Succeed(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !item.IsTerminal() {
			t.Error("expected succeeded item to be terminal")
		}
	})

	t.Run("invoke then fail", func(t *testing.T) {
		item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
		_ = item.Invoke()
		if err := item.Fail(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Status != StatusFailed {
			t.Errorf("expected status %s, got %s", StatusFailed, item.Status)
		}
	})

	t.Run("skip without invoking", func(t *testing.T) {
		item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
		if err := item.Skip(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !item.IsTerminal() {
			t.Error("expected skipped item to be terminal")
		}
	})

	t.Run("discovered is not terminal", func(t *testing.T) {
		item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
		if item.IsTerminal() {
			t.Error("expected discovered item to not be terminal")
		}
	})
}

func TestNewSuccess(t *testing.T) {
	item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})
	before := time.Now()

	res := NewSuccess(item, 42*time.Second)

	if res.Status != StatusSucceeded {
		t.Errorf("expected status %s, got %s", StatusSucceeded, res.Status)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if res.Elapsed != 42*time.Second {
		t.Errorf("unexpected elapsed: %v", res.Elapsed)
	}
	if res.Timestamp.Before(before) {
		t.Error("expected timestamp to be set at creation")
	}
	if res.Reason != "" {
		t.Errorf("expected empty reason, got %q", res.Reason)
	}
}

func TestNewFailure(t *testing.T) {
	item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})

	res := NewFailure(item, 3, time.Second, "exit status 3")

	if res.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, res.Status)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if res.Reason != "exit status 3" {
		t.Errorf("unexpected reason: %q", res.Reason)
	}
	if res.Elapsed < 0 {
		t.Error("expected non-negative elapsed time")
	}
}

func TestNewSkip(t *testing.T) {
	item := New("a.mp4", "out/a.mp4", "a.mp4", 0, Params{})

	res := NewSkip(item)

	if res.Status != StatusSkipped {
		t.Errorf("expected status %s, got %s", StatusSkipped, res.Status)
	}
	if res.Elapsed != 0 {
		t.Errorf("expected zero elapsed, got %v", res.Elapsed)
	}
	if res.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}
