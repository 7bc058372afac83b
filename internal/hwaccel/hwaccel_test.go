package hwaccel

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// stubTool writes an executable shell script into dir.
func stubTool(t *testing.T, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil { // #nosec G306 - test stub must be executable
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func TestDetect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools use /bin/sh")
	}

	ctx := context.Background()

	t.Run("nvidia-smi exiting zero means nvidia", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "nvidia-smi", "#!/bin/sh\nexit 0\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindNvidia {
			t.Errorf("expected %s, got %s", KindNvidia, got)
		}
	})

	t.Run("failing nvidia-smi falls through to cpu", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "nvidia-smi", "#!/bin/sh\nexit 1\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindCPU {
			t.Errorf("expected %s, got %s", KindCPU, got)
		}
	})

	t.Run("vainfo naming Intel means intel", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "vainfo", "#!/bin/sh\necho 'vainfo: Driver version: Intel iHD driver'\nexit 0\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindIntel {
			t.Errorf("expected %s, got %s", KindIntel, got)
		}
	})

	t.Run("vainfo without Intel falls through", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "vainfo", "#!/bin/sh\necho 'some other driver'\nexit 0\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindCPU {
			t.Errorf("expected %s, got %s", KindCPU, got)
		}
	})

	t.Run("rocm-smi exiting zero means amd", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "rocm-smi", "#!/bin/sh\nexit 0\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindAMD {
			t.Errorf("expected %s, got %s", KindAMD, got)
		}
	})

	t.Run("no tools means cpu", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())

		if got := Detect(ctx); got != KindCPU {
			t.Errorf("expected %s, got %s", KindCPU, got)
		}
	})

	t.Run("nvidia wins over amd", func(t *testing.T) {
		dir := t.TempDir()
		stubTool(t, dir, "nvidia-smi", "#!/bin/sh\nexit 0\n")
		stubTool(t, dir, "rocm-smi", "#!/bin/sh\nexit 0\n")
		t.Setenv("PATH", dir)

		if got := Detect(ctx); got != KindNvidia {
			t.Errorf("expected %s, got %s", KindNvidia, got)
		}
	})
}

func TestEncoder(t *testing.T) {
	tests := []struct {
		codec string
		kind  Kind
		want  string
	}{
		{"h264", KindNvidia, "nvenc_h264"},
		{"x264", KindNvidia, "nvenc_h264"},
		{"hevc", KindNvidia, "nvenc_h265"},
		{"x265", KindNvidia, "nvenc_h265"},
		{"av1", KindNvidia, "nvenc_av1"},
		{"h264", KindIntel, "qsv_h264"},
		{"hevc", KindIntel, "qsv_h265"},
		{"av1", KindIntel, "qsv_av1"},
		{"h264", KindAMD, "vce_h264"},
		{"x265", KindAMD, "vce_h265"},
		// AMD has no AV1 mapping; the codec passes through.
		{"av1", KindAMD, "av1"},
		// CPU has no mappings at all.
		{"h264", KindCPU, "h264"},
		{"x264", KindCPU, "x264"},
		// Unknown codecs pass through on any hardware.
		{"vp9", KindNvidia, "vp9"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.codec, func(t *testing.T) {
			if got := Encoder(tt.codec, tt.kind); got != tt.want {
				t.Errorf("Encoder(%q, %s) = %q, want %q", tt.codec, tt.kind, got, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	for _, encoder := range []string{
		"x264", "x265",
		"nvenc_h264", "nvenc_h265",
		"qsv_h264", "qsv_h265",
		"vce_h264", "vce_h265",
	} {
		if !Supported(encoder) {
			t.Errorf("expected %q to be supported", encoder)
		}
	}

	for _, encoder := range []string{"nvenc_av1", "qsv_av1", "vp9", "h264", ""} {
		if Supported(encoder) {
			t.Errorf("expected %q to be unsupported", encoder)
		}
	}
}
