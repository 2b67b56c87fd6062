// Package snapshot mirrors in-memory stores to durable storage as whole JSON
// documents, one document per store name.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Document names.
const (
	Items         = "items"
	Orders        = "orders"
	Subscriptions = "subscriptions"
)

// Store loads and saves named JSON snapshots. Save replaces the whole document.
type Store interface {
	Load(ctx context.Context, name string, v any) (found bool, err error)
	Save(ctx context.Context, name string, v any) error
}

// FileStore keeps each document in <Dir>/<name>.json.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.Dir, name+".json")
}

func (f *FileStore) Load(_ context.Context, name string, v any) (bool, error) {
	b, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read snapshot %s", name)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, errors.Wrapf(err, "decode snapshot %s", name)
	}
	return true, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a truncated document.
func (f *FileStore) Save(_ context.Context, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %s", name)
	}
	tmp, err := os.CreateTemp(f.Dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", name)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write snapshot %s", name)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync snapshot %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close snapshot %s", name)
	}
	if err := os.Rename(tmpName, f.path(name)); err != nil {
		return errors.Wrapf(err, "replace snapshot %s", name)
	}
	return nil
}

// Memory keeps encoded documents in process memory. Useful for demos
// (STORAGE=memory) and tests.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
	// FailSave and FailLoad, when set, are returned by Save and Load for
	// the named document.
	FailSave map[string]error
	FailLoad map[string]error
}

func NewMemory() *Memory {
	return &Memory{docs: map[string][]byte{}, FailSave: map[string]error{}, FailLoad: map[string]error{}}
}

func (m *Memory) Load(_ context.Context, name string, v any) (bool, error) {
	m.mu.Lock()
	b, ok := m.docs[name]
	ferr := m.FailLoad[name]
	m.mu.Unlock()
	if ferr != nil {
		return false, ferr
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, errors.Wrapf(err, "decode snapshot %s", name)
	}
	return true, nil
}

func (m *Memory) Save(_ context.Context, name string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailSave[name]; err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %s", name)
	}
	m.docs[name] = b
	return nil
}

// Raw returns the stored bytes for name, or nil.
func (m *Memory) Raw(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[name]
}
