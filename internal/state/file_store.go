package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore writes each snapshot to <dir>/<SYMBOL>_state.json, keeping the
// previous version as a backup.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "state"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(symbol string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s_state.json", strings.ToUpper(symbol)))
}

// BackupPath is where the previous snapshot of symbol is kept.
func (f *FileStore) BackupPath(symbol string) string {
	return strings.TrimSuffix(f.path(symbol), ".json") + "_backup.json"
}

// Save writes through a temporary file and an atomic rename.
func (f *FileStore) Save(_ context.Context, symbol string, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stateFile := f.path(symbol)
	if prev, err := os.ReadFile(stateFile); err == nil {
		if err := os.WriteFile(f.BackupPath(symbol), prev, 0644); err != nil {
			return fmt.Errorf("failed to back up state file: %w", err)
		}
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, blob, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to move state file: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, symbol string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(symbol))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state file: %w", err)
	}
	return data, true, nil
}

func (f *FileStore) Close() error { return nil }
