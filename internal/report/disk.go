package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DiskStore writes RunResult as JSON files to a lazily-created temp directory.
type DiskStore struct {
	fs afero.Fs

	mu  sync.Mutex
	dir string
}

// NewDiskStore creates a new DiskStore on fsys. The underlying temp
// directory is created lazily on the first Save or Load.
func NewDiskStore(fsys afero.Fs) *DiskStore {
	return &DiskStore{fs: fsys}
}

// Save writes a RunResult as a JSON file.
func (s *DiskStore) Save(result *RunResult) error {
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	return WriteFile(s.fs, filepath.Join(dir, result.ID+".json"), result)
}

// Load reads a RunResult by id.
func (s *DiskStore) Load(runID string) (*RunResult, error) {
	dir, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	return ReadFile(s.fs, filepath.Join(dir, runID+".json"))
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return s.dir, nil
	}
	dir, err := afero.TempDir(s.fs, "", "runchecks-runs-")
	if err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}
	s.dir = dir
	return dir, nil
}

// WriteFile writes result as indented JSON to path.
func WriteFile(fsys afero.Fs, path string, result *RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling result %s: %w", result.ID, err)
	}
	data = append(data, '\n')
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", result.ID, err)
	}
	return nil
}

// ReadFile reads a RunResult previously written with WriteFile.
func ReadFile(fsys afero.Fs, path string) (*RunResult, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", path, err)
	}
	return &result, nil
}
