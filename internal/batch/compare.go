package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/oliverdougherC/Simple-Transcoder/internal/display"
	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
	"github.com/oliverdougherC/Simple-Transcoder/internal/probe"
)

// logComparison reports input vs output codec, resolution, bitrate,
// duration, and size after a verified success. Probe trouble here only
// costs the report, never the item.
func (r *Runner) logComparison(ctx context.Context, item *job.WorkItem) {
	in, err := r.prober.Inspect(ctx, item.Source)
	if err != nil {
		r.logger.Debug("could not inspect input",
			slog.String("path", item.Source),
			slog.String("error", err.Error()),
		)
		return
	}
	out, err := r.prober.Inspect(ctx, item.Output)
	if err != nil {
		r.logger.Debug("could not inspect output",
			slog.String("path", item.Output),
			slog.String("error", err.Error()),
		)
		return
	}

	inSize := sizeOf(in)
	outSize := sizeOf(out)

	r.logger.Info("transcode comparison",
		slog.String("codec", row(codecOf(in), codecOf(out))),
		slog.String("resolution", row(resolutionOf(in), resolutionOf(out))),
		slog.String("bitrate", row(display.FormatBitrate(in.Format.BitRate), display.FormatBitrate(out.Format.BitRate))),
		slog.String("duration", row(durationOf(in), durationOf(out))),
		slog.String("size", row(display.FormatBytes(inSize), display.FormatBytes(outSize))),
		slog.String("space_saved", fmt.Sprintf("%.1f%%", display.SpaceSaved(inSize, outSize))),
	)
}

// row renders one input -> output comparison cell.
func row(in, out string) string {
	return in + " -> " + out
}

func codecOf(info *probe.Info) string {
	if vs := info.VideoStream(); vs != nil && vs.CodecName != "" {
		return vs.CodecName
	}
	return "N/A"
}

func resolutionOf(info *probe.Info) string {
	vs := info.VideoStream()
	if vs == nil {
		return "N/A"
	}
	return display.FormatResolution(vs.Width, vs.Height)
}

func durationOf(info *probe.Info) string {
	d, err := info.DurationSeconds()
	if err != nil {
		return "N/A"
	}
	return display.FormatSeconds(d)
}

func sizeOf(info *probe.Info) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(info.Format.Size), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
