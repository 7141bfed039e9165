// Package storage keeps the on-device state of a journalon installation: the
// list of journals it knows about and the private keys it holds for them.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is a durable string-keyed byte store.
// Get returns nil, nil when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// FileName is the document FileKV keeps inside the data directory.
const FileName = "journalon.json"

// FileKV keeps every key in a single JSON document, one string value per key,
// the same way a browser's localStorage would.
type FileKV struct {
	path string
	mu   sync.Mutex
}

// NewFileKV returns a FileKV backed by dir/journalon.json.
// The directory is created on first write.
func NewFileKV(dir string) *FileKV {
	return &FileKV{path: filepath.Join(dir, FileName)}
}

// Path returns the location of the backing document.
func (kv *FileKV) Path() string {
	return kv.path
}

func (kv *FileKV) load() (map[string]string, error) {
	data, err := os.ReadFile(kv.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", kv.path, err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kv.path, err)
	}
	return values, nil
}

// save writes through a temp file so a crash never leaves a half-written document.
func (kv *FileKV) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(kv.path), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kv.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(kv.path), FileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), kv.path); err != nil {
		return fmt.Errorf("replace %s: %w", kv.path, err)
	}
	return nil
}

// Get returns the value stored under key.
func (kv *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, err := kv.load()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// Set stores value under key. An unreadable document is replaced.
func (kv *FileKV) Set(_ context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, err := kv.load()
	if err != nil {
		values = map[string]string{}
	}
	values[key] = string(value)
	return kv.save(values)
}

// Delete removes key. Deleting a missing key is not an error.
func (kv *FileKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	values, err := kv.load()
	if err != nil {
		values = map[string]string{}
	}
	if _, ok := values[key]; !ok && err == nil {
		return nil
	}
	delete(values, key)
	return kv.save(values)
}
