package handbrake

import (
	"regexp"
	"strconv"
)

// progressPattern matches HandBrakeCLI encoding progress lines, e.g.
//
//	Encoding: task 1 of 1, 42.10 % (95.32 fps, avg 87.11 fps, ETA 00h12m37s)
var progressPattern = regexp.MustCompile(`Encoding: task \d+ of \d+, (\d+\.\d+) %.*?(\d+\.\d+) fps, avg (\d+\.\d+) fps, ETA (\d+h\d+m\d+s)`)

// Progress is one parsed progress update from the tool's output.
type Progress struct {
	// Percent is the completion percentage of the current task.
	Percent float64
	// FPS is the instantaneous encode rate.
	FPS float64
	// AvgFPS is the average encode rate since the task started.
	AvgFPS float64
	// ETA is the tool's own remaining-time estimate, verbatim.
	ETA string
}

// ProgressFunc receives progress updates during an invocation.
type ProgressFunc func(Progress)

// ParseProgress extracts a progress update from one line of HandBrakeCLI
// output. It returns false for lines that are not full progress updates;
// early lines without rate estimates are ignored.
func ParseProgress(line string) (Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	fps, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Progress{}, false
	}
	avg, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Progress{}, false
	}

	return Progress{
		Percent: percent,
		FPS:     fps,
		AvgFPS:  avg,
		ETA:     m[4],
	}, true
}
