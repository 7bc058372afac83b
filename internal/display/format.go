// Package display formats sizes, bitrates, and other media attributes for
// console and log output.
package display

import (
	"fmt"
	"strconv"
)

// FormatBytes returns a human-readable size (B, KB, MB, GB, TB, PB).
func FormatBytes(bytes int64) string {
	value := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f PB", value)
}

// FormatBytesWithSign prefixes with + or - for delta display (e.g. "- 1.20 GB").
func FormatBytesWithSign(bytes int64) string {
	sign := ""
	if bytes > 0 {
		sign = "+ "
	} else if bytes < 0 {
		sign = "- "
		bytes = -bytes
	}
	return sign + FormatBytes(bytes)
}

// FormatBitrate returns a human-readable bitrate from a bits-per-second
// value as reported by ffprobe. Missing or malformed values format as "N/A".
func FormatBitrate(raw string) string {
	if raw == "" || raw == "N/A" {
		return "N/A"
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "N/A"
	}
	for _, unit := range []string{"bps", "Kbps", "Mbps", "Gbps"} {
		if value < 1000 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1000
	}
	return fmt.Sprintf("%.2f Tbps", value)
}

// FormatResolution renders a video frame size, e.g. "1920x1080".
func FormatResolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// FormatSeconds renders a duration in seconds, e.g. "1432.00s".
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

// SpaceSaved returns the percentage of bytes saved going from in to out.
// A negative value means the output grew.
func SpaceSaved(in, out int64) float64 {
	if in <= 0 {
		return 0
	}
	return (1 - float64(out)/float64(in)) * 100
}
