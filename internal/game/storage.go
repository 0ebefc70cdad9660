package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// StorageKey is the namespaced key the game state is stored under.
const StorageKey = "funnel-game-storage"

// Storage persists a game snapshot between runs.
type Storage interface {
	// Load returns the stored snapshot; found is false when nothing was stored.
	Load(ctx context.Context) (snap Snapshot, found bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// FileStorage keeps namespaced JSON values in a single file, one top-level
// key per namespace. Keys it does not own are preserved on save.
type FileStorage struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFileStorage stores the game under StorageKey in path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, key: StorageKey}
}

func (f *FileStorage) readAll() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	all := map[string]json.RawMessage{}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupted, f.path, err)
	}
	return all, nil
}

// Load implements Storage.
func (f *FileStorage) Load(_ context.Context) (Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return Snapshot{}, false, err
	}
	raw, ok := all[f.key]
	if !ok {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: key %s: %w", ErrCorrupted, f.key, err)
	}
	return snap, true, nil
}

// Save implements Storage. The file is replaced atomically.
func (f *FileStorage) Save(_ context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	all[f.key] = raw
	b, err := json.Marshal(all)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".guess-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
