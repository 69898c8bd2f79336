package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/storage"
)

func stringPtr(s string) *string { return &s }
func intPtr(i int) *int          { return &i }

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Folders: []model.FolderRecord{
			{ID: "f2", Name: "Child", ParentID: stringPtr("f1"), SortOrder: intPtr(1)},
			{ID: "f1", Name: "Development", SortOrder: intPtr(0)},
		},
		Bookmarks: []model.BookmarkRecord{
			{
				ID:        "b1",
				Name:      "handler",
				Location:  model.Location{DocumentRef: "file:///srv/api.go", Line: 12, Column: 4},
				FolderID:  stringPtr("f2"),
				SortOrder: intPtr(2),
			},
			{ID: "b2", Name: "readme", Location: model.Location{DocumentRef: "README.md"}},
		},
	}
}

func TestBlobStorage_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bookmarks.json")

	s := storage.NewBlobStorage(storage.NewFileKV(path))
	assert.NilError(t, s.Save(sampleSnapshot()))

	// Verify file exists
	_, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Equal(t, s.Path(), path)

	loaded, err := s.Load()
	assert.NilError(t, err)
	assert.DeepEqual(t, loaded, sampleSnapshot())
}

func TestBlobStorage_UsesNamedBlobs(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := storage.NewBlobStorage(kv)
	assert.NilError(t, s.Save(sampleSnapshot()))

	bookmarks, ok, err := kv.Get(storage.BookmarksKey)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Check(t, is.Contains(string(bookmarks), `"documentRef":"file:///srv/api.go"`))

	folders, ok, err := kv.Get(storage.FoldersKey)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Check(t, is.Contains(string(folders), `"parentId":"f1"`))
}

func TestBlobStorage_LoadMissing(t *testing.T) {
	s := storage.NewBlobStorage(storage.NewFileKV(filepath.Join(t.TempDir(), "nonexistent.json")))

	snap, err := s.Load()
	assert.NilError(t, err)
	assert.Check(t, snap.Bookmarks != nil && len(snap.Bookmarks) == 0)
	assert.Check(t, snap.Folders != nil && len(snap.Folders) == 0)
}

func TestBlobStorage_LoadCorrupt(t *testing.T) {
	kv := storage.NewMemoryKV()
	assert.NilError(t, kv.Set(storage.FoldersKey, []byte(`{"not":"a list"}`)))

	_, err := storage.NewBlobStorage(kv).Load()
	assert.ErrorContains(t, err, "decode bookmarkFolders")
}

func TestFileKV_CreatesDirectoryAndKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "kv.json")
	kv := storage.NewFileKV(path)

	assert.NilError(t, kv.Set("a", []byte(`[1,2]`)))
	assert.NilError(t, kv.Set("b", []byte(`"x"`)))

	v, ok, err := kv.Get("a")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, string(v), `[1,2]`)

	_, ok, err = kv.Get("missing")
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	assert.ErrorContains(t, kv.Set("c", []byte("not json")), "not valid JSON")
}

func TestOpenedStoreRoundTripsThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")

	st, err := model.Open(storage.NewBlobStorage(storage.NewFileKV(path)))
	assert.NilError(t, err)
	dir, err := st.CreateFolder("dir", nil)
	assert.NilError(t, err)
	_, err = st.AddBookmark(model.Location{DocumentRef: "main.go", Line: 3}, "main", &dir)
	assert.NilError(t, err)

	reopened, err := model.Open(storage.NewBlobStorage(storage.NewFileKV(path)))
	assert.NilError(t, err)
	nb, nf := reopened.Len()
	assert.Equal(t, nb, 1)
	assert.Equal(t, nf, 1)
	assert.Equal(t, reopened.ChildrenOf(&dir)[0].Kind, model.KindBookmark)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	s, err := storage.OpenStorage(&storage.Config{Backend: storage.BackendJSON, DataDir: dir})
	assert.NilError(t, err)
	assert.Equal(t, s.Path(), filepath.Join(dir, "bookmarks.json"))
	assert.NilError(t, s.Close())

	s, err = storage.OpenStorage(&storage.Config{Backend: storage.BackendSQLite, DataDir: dir})
	assert.NilError(t, err)
	assert.Equal(t, s.Path(), filepath.Join(dir, "bookmarks.db"))
	assert.NilError(t, s.Close())

	_, err = storage.OpenStorage(&storage.Config{Backend: "redis", DataDir: dir})
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cm", "config.json")

	cfg, err := storage.LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Backend, storage.BackendJSON)
	assert.Equal(t, cfg.DataDir, filepath.Dir(path))
	assert.Equal(t, cfg.CheckConcurrency, 8)

	_, err = os.Stat(path)
	assert.NilError(t, err)
}

func TestLoadConfig_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"backend":"sqlite","logVerbosity":2}`), 0644))

	cfg, err := storage.LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Backend, storage.BackendSQLite)
	assert.Equal(t, cfg.LogVerbosity, 2)
	assert.Equal(t, cfg.ListenAddr, storage.DefaultConfig().ListenAddr)
	assert.Equal(t, cfg.DataDir, filepath.Dir(path))
}

func TestDefaultConfigFilePath_Env(t *testing.T) {
	t.Setenv(storage.ConfigEnv, "/tmp/cm-test.json")
	p, err := storage.DefaultConfigFilePath()
	assert.NilError(t, err)
	assert.Equal(t, p, "/tmp/cm-test.json")
}
