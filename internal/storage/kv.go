package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// KV is an opaque key-value blob store.
type KV interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
}

// Batcher is implemented by KVs that can write several keys at once.
type Batcher interface {
	SetMany(values map[string][]byte) error
}

// MemoryKV is a KV held in memory.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (kv *MemoryKV) Get(key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (kv *MemoryKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = append([]byte(nil), value...)
	return nil
}

// FileKV stores JSON values as the members of one JSON object file.
// Values must be valid JSON.
type FileKV struct {
	path string
}

// NewFileKV creates a FileKV with the given file path.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

// Path returns the storage file path.
func (kv *FileKV) Path() string {
	return kv.path
}

func (kv *FileKV) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(kv.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%s: %w", kv.path, err)
	}
	return values, nil
}

func (kv *FileKV) Get(key string) ([]byte, bool, error) {
	values, err := kv.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return []byte(v), ok, nil
}

func (kv *FileKV) Set(key string, value []byte) error {
	return kv.SetMany(map[string][]byte{key: value})
}

// SetMany updates several keys with a single file write.
func (kv *FileKV) SetMany(updates map[string][]byte) error {
	values, err := kv.read()
	if err != nil {
		return err
	}
	for k, v := range updates {
		if !json.Valid(v) {
			return fmt.Errorf("value for %q is not valid JSON", k)
		}
		values[k] = json.RawMessage(v)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(kv.path, data)
}

// writeFileAtomic writes data next to path and renames it into place.
// Creates the directory if it doesn't exist.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
