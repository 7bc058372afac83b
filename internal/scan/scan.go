// Package scan discovers transcodable files in the input tree and turns them
// into work items for the batch.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oliverdougherC/Simple-Transcoder/internal/job"
)

// Enumerator lists files under an input directory that match an extension
// allow-list and derives their mirrored output paths.
type Enumerator struct {
	inputDir   string
	outputDir  string
	extensions map[string]struct{}
	params     job.Params
}

// New creates an Enumerator. Extensions are matched case-insensitively and
// must carry a leading dot.
func New(inputDir, outputDir string, extensions []string, params job.Params) *Enumerator {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return &Enumerator{
		inputDir:   inputDir,
		outputDir:  outputDir,
		extensions: set,
		params:     params,
	}
}

// Enumerate walks the input tree and returns the discovered work items
// sorted by source path. The sort keeps repeated runs over an unchanged tree
// in the same order, so run logs stay comparable. Each item's output path
// mirrors the source's relative subpath under the output directory.
func (e *Enumerator) Enumerate() ([]*job.WorkItem, error) {
	var items []*job.WorkItem

	err := filepath.WalkDir(e.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !e.matches(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(e.inputDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		output := filepath.Join(e.outputDir, rel)
		items = append(items, job.New(path, output, rel, info.Size(), e.params))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", e.inputDir, err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Source < items[j].Source
	})

	return items, nil
}

// matches reports whether a filename ends in one of the allowed extensions.
func (e *Enumerator) matches(name string) bool {
	lower := strings.ToLower(name)
	for ext := range e.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
