// Package localstore is the local persistent key-value scope used for the
// anonymous cart and the remembered sign-in. The capability is injected at
// construction: interactive contexts get a file-backed scope, everything
// else gets Noop.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Noop is the absent capability. Reads miss, writes succeed silently.
type Noop struct{}

func (Noop) Get(string) (string, bool) { return "", false }
func (Noop) Set(string, string) error  { return nil }
func (Noop) Remove(string) error       { return nil }

// File is a JSON-file-backed scope. Every write rewrites the whole file;
// the data set is a handful of small keys, so this is fine.
type File struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func OpenFile(path string) (*File, error) {
	f := &File{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local store %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("corrupt local store %s: %w", path, err)
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.flush()
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return f.flush()
}

func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode local store: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write local store %s: %w", f.path, err)
	}
	return nil
}
