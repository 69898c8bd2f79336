package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cm/internal/api"
	"github.com/nikbrunner/cm/internal/model"
)

type fixture struct {
	store *model.Store
	srv   *api.Server
	ids   map[string]string
}

// newFixture builds root [F1{X, Y}, F2{Z}, P, Q, R].
func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := model.NewStore()
	ids := map[string]string{}

	folder := func(name string) {
		id, err := s.CreateFolder(name, nil)
		assert.NilError(t, err)
		ids[name] = id
	}
	bookmark := func(name string, folder string) {
		var parent *string
		if folder != "" {
			id := ids[folder]
			parent = &id
		}
		id, err := s.AddBookmark(model.Location{DocumentRef: name + ".go", Line: 1}, name, parent)
		assert.NilError(t, err)
		ids[name] = id
	}

	folder("F1")
	folder("F2")
	bookmark("X", "F1")
	bookmark("Y", "F1")
	bookmark("Z", "F2")
	bookmark("P", "")
	bookmark("Q", "")
	bookmark("R", "")

	return &fixture{store: s, srv: api.NewServer(s), ids: ids}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NilError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func names(items []api.ItemJSON) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func (f *fixture) children(t *testing.T, folder string) []string {
	t.Helper()
	path := "/children"
	if folder != "" {
		path += "?folder=" + f.ids[folder]
	}
	rec := f.do(t, http.MethodGet, path, nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	return names(decodeBody[[]api.ItemJSON](t, rec))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, rec.Code, http.StatusOK)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, body["status"], "ok")
	assert.Equal(t, body["bookmarks"], float64(6))
	assert.Equal(t, body["folders"], float64(2))
}

func TestChildren(t *testing.T) {
	f := newFixture(t)

	assert.DeepEqual(t, f.children(t, ""), []string{"F1", "F2", "P", "Q", "R"})
	assert.DeepEqual(t, f.children(t, "F1"), []string{"X", "Y"})

	rec := f.do(t, http.MethodGet, "/children?folder=nope", nil)
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestTree(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/tree", nil)
	assert.Equal(t, rec.Code, http.StatusOK)

	tree := decodeBody[[]api.ItemJSON](t, rec)
	assert.DeepEqual(t, names(tree), []string{"F1", "F2", "P", "Q", "R"})
	assert.DeepEqual(t, names(tree[0].Children), []string{"X", "Y"})
	assert.Equal(t, tree[2].Location.DocumentRef, "P.go")
}

func TestBookmarkLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/bookmarks", map[string]any{
		"name":     "entry",
		"location": map[string]any{"documentRef": "main.go", "line": 4, "column": 2},
		"folderId": f.ids["F2"],
	})
	assert.Equal(t, rec.Code, http.StatusCreated)
	created := decodeBody[model.Bookmark](t, rec)
	assert.Equal(t, *created.FolderID, f.ids["F2"])
	assert.DeepEqual(t, f.children(t, "F2"), []string{"Z", "entry"})

	rec = f.do(t, http.MethodPatch, "/bookmarks/"+created.ID, map[string]string{"name": "main"})
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, f.store.GetBookmark(created.ID).Name, "main")

	rec = f.do(t, http.MethodPost, "/bookmarks/"+created.ID+"/move", map[string]string{})
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, f.store.GetBookmark(created.ID).FolderID == nil)

	rec = f.do(t, http.MethodGet, "/bookmarks?document=main.go", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Check(t, is.Len(decodeBody[[]model.Bookmark](t, rec), 1))

	rec = f.do(t, http.MethodDelete, "/bookmarks/"+created.ID, nil)
	assert.Equal(t, rec.Code, http.StatusNoContent)
	assert.Assert(t, f.store.GetBookmark(created.ID) == nil)

	rec = f.do(t, http.MethodDelete, "/bookmarks/"+created.ID, nil)
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestAddBookmark_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/bookmarks", map[string]any{"name": "x"})
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/bookmarks", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestMoveFolder_Cycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/folders", map[string]string{"name": "Inner", "parentId": f.ids["F1"]})
	assert.Equal(t, rec.Code, http.StatusCreated)
	inner := decodeBody[model.Folder](t, rec)

	rec = f.do(t, http.MethodPost, "/folders/"+f.ids["F1"]+"/move", map[string]string{"parentId": inner.ID})
	assert.Equal(t, rec.Code, http.StatusConflict)
	assert.Assert(t, f.store.GetFolder(f.ids["F1"]).ParentID == nil)

	rec = f.do(t, http.MethodPost, "/folders/"+f.ids["F1"]+"/move", map[string]string{"parentId": "missing"})
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestDeleteFolder_PromotesChildren(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/folders/"+f.ids["F1"], nil)
	assert.Equal(t, rec.Code, http.StatusNoContent)

	root := f.children(t, "")
	assert.Check(t, is.Contains(root, "X"))
	assert.Check(t, is.Contains(root, "Y"))
	assert.Check(t, !contains(root, "F1"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestReorderAndPlace(t *testing.T) {
	f := newFixture(t)

	// root is [F1, F2, P, Q, R]; move R (index 4) to the front
	rec := f.do(t, http.MethodPost, "/reorder", map[string]any{"id": f.ids["R"], "from": 4, "to": 0})
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.DeepEqual(t, f.children(t, ""), []string{"R", "F1", "F2", "P", "Q"})

	rec = f.do(t, http.MethodPost, "/place", map[string]any{"sourceId": f.ids["R"], "targetId": f.ids["Q"], "position": "after"})
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.DeepEqual(t, f.children(t, ""), []string{"F1", "F2", "P", "Q", "R"})

	rec = f.do(t, http.MethodPost, "/place", map[string]any{"sourceId": f.ids["R"], "targetId": f.ids["Q"], "position": "sideways"})
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestDrop(t *testing.T) {
	f := newFixture(t)

	// same level: P onto R lands right before R
	rec := f.do(t, http.MethodPost, "/drop", map[string]string{"sourceId": f.ids["P"], "targetId": f.ids["R"]})
	assert.Equal(t, rec.Code, http.StatusOK)
	in := decodeBody[api.IntentJSON](t, rec)
	assert.Equal(t, in.Kind, "reorder")
	assert.Equal(t, in.Position, "before")
	assert.DeepEqual(t, f.children(t, ""), []string{"F1", "F2", "Q", "P", "R"})

	// cross container: X onto F2 moves it into F2
	rec = f.do(t, http.MethodPost, "/drop", map[string]string{"sourceId": f.ids["X"], "targetId": f.ids["F2"]})
	assert.Equal(t, rec.Code, http.StatusOK)
	in = decodeBody[api.IntentJSON](t, rec)
	assert.Equal(t, in.Kind, "moveBookmark")
	assert.Equal(t, *in.Container, f.ids["F2"])
	assert.DeepEqual(t, f.children(t, "F1"), []string{"Y"})

	// empty space: Z to root, dry run leaves the store alone
	rec = f.do(t, http.MethodPost, "/drop", map[string]any{"sourceId": f.ids["Z"], "dryRun": true})
	assert.Equal(t, rec.Code, http.StatusOK)
	in = decodeBody[api.IntentJSON](t, rec)
	assert.Equal(t, in.Kind, "moveBookmark")
	assert.Assert(t, in.Container == nil)
	assert.Check(t, is.Contains(f.children(t, "F2"), "Z"))

	// folder onto its own child is refused by the store
	rec = f.do(t, http.MethodPost, "/folders", map[string]string{"name": "Sub", "parentId": f.ids["F2"]})
	sub := decodeBody[model.Folder](t, rec)
	rec = f.do(t, http.MethodPost, "/drop", map[string]string{"sourceId": f.ids["F2"], "targetId": sub.ID})
	assert.Equal(t, rec.Code, http.StatusConflict)

	rec = f.do(t, http.MethodPost, "/drop", map[string]string{"sourceId": "missing"})
	assert.Equal(t, rec.Code, http.StatusNotFound)
}

func TestExportImport(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/export", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	doc := decodeBody[model.Document](t, rec)
	assert.Equal(t, doc.Version, model.ExportVersion)
	assert.Check(t, is.Len(doc.Bookmarks, 6))

	other := model.NewStore()
	srv := api.NewServer(other)
	var buf bytes.Buffer
	assert.NilError(t, json.NewEncoder(&buf).Encode(doc))
	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusOK)

	res := decodeBody[model.ImportResult](t, rec)
	assert.Assert(t, res.Success, res.Message)
	assert.Equal(t, res.Bookmarks, 6)
	assert.Equal(t, res.Folders, 2)

	rec = f.do(t, http.MethodPost, "/import", map[string]string{"version": "1.0.0"})
	assert.Equal(t, rec.Code, http.StatusBadRequest)
	assert.Assert(t, !decodeBody[model.ImportResult](t, rec).Success)
}
