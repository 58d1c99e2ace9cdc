package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Area handles the local temporary files a run stages data through.
// Each run gets its own directory under BaseDir; Release removes it.
type Area struct {
	fs      afero.Fs
	BaseDir string
}

// NewArea creates a staging area rooted at baseDir on fs.
// An empty baseDir selects a directory under the OS temp dir.
func NewArea(fs afero.Fs, baseDir string) *Area {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "lake-pipeline")
	}
	return &Area{fs: fs, BaseDir: baseDir}
}

// RunDir returns the directory holding a run's artifacts
func (a *Area) RunDir(runID string) string {
	return filepath.Join(a.BaseDir, runID)
}

// Write stores data as a file in the run's directory and returns its path
func (a *Area) Write(runID, fileName string, data []byte) (string, error) {
	runDir := a.RunDir(runID)
	if err := a.fs.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	// Clean the filename to remove any path separators
	path := filepath.Join(runDir, filepath.Base(fileName))
	if err := afero.WriteFile(a.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	return path, nil
}

// Open opens a staged file for reading
func (a *Area) Open(path string) (io.ReadCloser, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging file: %w", err)
	}
	return f, nil
}

// Release removes every artifact of the run. Releasing twice is a no-op.
func (a *Area) Release(runID string) error {
	if err := a.fs.RemoveAll(a.RunDir(runID)); err != nil {
		return fmt.Errorf("failed to remove staging directory: %w", err)
	}
	return nil
}
