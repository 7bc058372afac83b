package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputInsideInput is returned when the output directory sits inside
// the input directory. A run laid out that way would re-discover its own
// outputs on the next pass.
var ErrOutputInsideInput = errors.New("storage: output directory is inside the input directory")

// FilesystemError reports a failed operation while preparing the library
// layout on disk.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// Library is the on-disk layout a batch works against: the input tree,
// the mirrored output tree, and the run log location.
type Library struct {
	inputDir  string
	outputDir string
	logPath   string
}

// NewLibrary validates the layout and returns a Library. The output
// directory must not be nested inside the input directory.
func NewLibrary(inputDir, outputDir, logPath string) (*Library, error) {
	in, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: inputDir, Err: err}
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: outputDir, Err: err}
	}
	if within(in, out) {
		return nil, ErrOutputInsideInput
	}

	return &Library{
		inputDir:  inputDir,
		outputDir: outputDir,
		logPath:   logPath,
	}, nil
}

// InputDir returns the library's input directory.
func (l *Library) InputDir() string { return l.inputDir }

// OutputDir returns the library's output directory.
func (l *Library) OutputDir() string { return l.outputDir }

// LogPath returns the run log location.
func (l *Library) LogPath() string { return l.logPath }

// EnsureLayout creates the input directory, the output directory, and the
// run log's parent directory. Directories that already exist are left
// untouched, so calling it on every start is safe.
func (l *Library) EnsureLayout() error {
	dirs := []string{l.inputDir, l.outputDir, filepath.Dir(l.logPath)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return &FilesystemError{Op: "create directory", Path: dir, Err: err}
		}
	}
	return nil
}

// EnsureOutputDir creates the parent directory of one output path so the
// mirrored subtree exists before HandBrakeCLI opens the file.
func (l *Library) EnsureOutputDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return &FilesystemError{Op: "create directory", Path: dir, Err: err}
	}
	return nil
}

// within reports whether child is parent itself or a path under it.
// Both paths must be absolute.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
