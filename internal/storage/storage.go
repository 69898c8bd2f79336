package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/tliron/commonlog"

	"github.com/nikbrunner/cm/internal/model"
)

// Blob keys used by BlobStorage.
const (
	BookmarksKey = "bookmarks"
	FoldersKey   = "bookmarkFolders"
)

// ErrUnknownBackend is returned by OpenStorage for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	model.Persister
	Path() string
	Close() error
}

func logger() commonlog.Logger {
	return commonlog.GetLogger("cm.storage")
}

// BlobStorage implements Storage on top of a KV. Bookmarks and folders are
// kept as two JSON array blobs and both are replaced on every save.
type BlobStorage struct {
	kv KV
}

// NewBlobStorage creates a BlobStorage backed by kv.
func NewBlobStorage(kv KV) *BlobStorage {
	return &BlobStorage{kv: kv}
}

// Path returns the path of the underlying KV, if it has one.
func (s *BlobStorage) Path() string {
	if p, ok := s.kv.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// Close closes the underlying KV if it needs closing.
func (s *BlobStorage) Close() error {
	if c, ok := s.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Load reads both blobs. Missing blobs load as empty lists.
func (s *BlobStorage) Load() (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Bookmarks: []model.BookmarkRecord{},
		Folders:   []model.FolderRecord{},
	}
	if err := s.get(BookmarksKey, &snap.Bookmarks); err != nil {
		return nil, err
	}
	if err := s.get(FoldersKey, &snap.Folders); err != nil {
		return nil, err
	}

	// Ensure slices are not nil
	if snap.Bookmarks == nil {
		snap.Bookmarks = []model.BookmarkRecord{}
	}
	if snap.Folders == nil {
		snap.Folders = []model.FolderRecord{}
	}
	return snap, nil
}

func (s *BlobStorage) get(key string, v any) error {
	data, ok, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save replaces both blobs with the snapshot.
func (s *BlobStorage) Save(snap *model.Snapshot) error {
	bookmarks, err := json.Marshal(snap.Bookmarks)
	if err != nil {
		return err
	}
	folders, err := json.Marshal(snap.Folders)
	if err != nil {
		return err
	}

	if b, ok := s.kv.(Batcher); ok {
		return b.SetMany(map[string][]byte{
			BookmarksKey: bookmarks,
			FoldersKey:   folders,
		})
	}
	if err := s.kv.Set(BookmarksKey, bookmarks); err != nil {
		return err
	}
	return s.kv.Set(FoldersKey, folders)
}

// DefaultConfigDir returns the default directory: ~/.config/cm
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "cm"), nil
}

// OpenStorage opens the backend named in the config.
func OpenStorage(cfg *Config) (Storage, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStorage(filepath.Join(cfg.DataDir, "bookmarks.db"))
	case BackendJSON, "":
		return NewBlobStorage(NewFileKV(filepath.Join(cfg.DataDir, "bookmarks.json"))), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
