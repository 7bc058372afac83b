// Package hwaccel detects GPU hardware and maps codec identifiers to the
// matching HandBrake encoder.
package hwaccel

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Kind identifies the detected acceleration hardware.
type Kind string

const (
	// KindNvidia indicates an NVIDIA GPU reachable through nvidia-smi.
	KindNvidia Kind = "nvidia"
	// KindIntel indicates an Intel GPU reported by vainfo.
	KindIntel Kind = "intel"
	// KindAMD indicates an AMD GPU reachable through rocm-smi.
	KindAMD Kind = "amd"
	// KindCPU indicates no usable GPU; encoding stays on the CPU.
	KindCPU Kind = "cpu"
)

// Fallback is the encoder used when the mapped encoder is not supported.
const Fallback = "x264"

// vendorEncoders maps codec identifiers to hardware encoders per vendor.
var vendorEncoders = map[Kind]map[string]string{
	KindNvidia: {
		"h264": "nvenc_h264",
		"x264": "nvenc_h264",
		"hevc": "nvenc_h265",
		"x265": "nvenc_h265",
		"av1":  "nvenc_av1",
	},
	KindIntel: {
		"h264": "qsv_h264",
		"x264": "qsv_h264",
		"hevc": "qsv_h265",
		"x265": "qsv_h265",
		"av1":  "qsv_av1",
	},
	KindAMD: {
		"h264": "vce_h264",
		"x264": "vce_h264",
		"hevc": "vce_h265",
		"x265": "vce_h265",
	},
}

// supportedEncoders is the allow-list of encoders handed to HandBrakeCLI.
var supportedEncoders = map[string]struct{}{
	"x264":       {},
	"x265":       {},
	"nvenc_h264": {},
	"nvenc_h265": {},
	"qsv_h264":   {},
	"qsv_h265":   {},
	"vce_h264":   {},
	"vce_h265":   {},
}

// Detect probes for vendor tools and reports the first hardware match:
// nvidia-smi exiting zero means an NVIDIA GPU, vainfo output naming Intel
// means an Intel GPU, rocm-smi exiting zero means an AMD GPU. Probe failures
// are not errors; they just mean CPU encoding.
func Detect(ctx context.Context) Kind {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		if err := exec.CommandContext(ctx, "nvidia-smi").Run(); err == nil {
			return KindNvidia
		}
	}

	if _, err := exec.LookPath("vainfo"); err == nil {
		var stdout bytes.Buffer
		cmd := exec.CommandContext(ctx, "vainfo")
		cmd.Stdout = &stdout
		// vainfo can exit non-zero and still name the driver vendor.
		_ = cmd.Run()
		if strings.Contains(stdout.String(), "Intel") {
			return KindIntel
		}
	}

	if _, err := exec.LookPath("rocm-smi"); err == nil {
		if err := exec.CommandContext(ctx, "rocm-smi").Run(); err == nil {
			return KindAMD
		}
	}

	return KindCPU
}

// Encoder maps a configured codec identifier to the encoder for the detected
// hardware. Combinations without a hardware mapping pass the codec through
// unchanged.
func Encoder(codec string, kind Kind) string {
	if m, ok := vendorEncoders[kind]; ok {
		if mapped, ok := m[codec]; ok {
			return mapped
		}
	}
	return codec
}

// Supported reports whether HandBrakeCLI can be handed the encoder; callers
// should substitute Fallback when it cannot.
func Supported(encoder string) bool {
	_, ok := supportedEncoders[encoder]
	return ok
}
