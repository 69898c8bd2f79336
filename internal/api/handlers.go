package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/view"
)

// ItemJSON is one entry of a children listing.
type ItemJSON struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sortOrder"`
	Location  *model.Location `json:"location,omitempty"`
	Children  []ItemJSON      `json:"children,omitempty"`
}

// IntentJSON describes the mutation a drop resolved to.
type IntentJSON struct {
	Kind      string  `json:"kind"`
	SourceID  string  `json:"sourceId,omitempty"`
	TargetID  string  `json:"targetId,omitempty"`
	Container *string `json:"container,omitempty"`
	Position  string  `json:"position,omitempty"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func itemJSON(it view.Item) ItemJSON {
	out := ItemJSON{
		Kind:      it.Kind.String(),
		ID:        it.ID(),
		Name:      it.Title(),
		SortOrder: it.SortOrder(),
	}
	if !it.IsFolder() {
		loc := it.Bookmark.Location
		out.Location = &loc
	}
	return out
}

func intentJSON(in view.Intent) IntentJSON {
	out := IntentJSON{
		Kind:      in.Kind.String(),
		SourceID:  in.SourceID,
		TargetID:  in.TargetID,
		Container: in.Container,
	}
	if in.Kind == view.IntentReorder {
		out.Position = in.Position.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Errorf("encode response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrCycle):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrFolderNotFound), errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrAmbiguous):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// optional turns "" into nil, the root container.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	nb, nf := s.store.Len()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"bookmarks": nb,
		"folders":   nf,
	})
}

// handleChildren lists a container's children in display order.
// ?folder= selects the folder; absent means root.
func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	folder := optional(r.URL.Query().Get("folder"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if folder != nil && s.store.GetFolder(*folder) == nil {
		writeStoreError(w, fmt.Errorf("%w: %s", model.ErrFolderNotFound, *folder))
		return
	}

	items := s.view.ChildrenOf(folder)
	out := make([]ItemJSON, len(items))
	for i, it := range items {
		out[i] = itemJSON(it)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTree returns the whole hierarchy nested in display order.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var build func(container *string, seen map[string]bool) []ItemJSON
	build = func(container *string, seen map[string]bool) []ItemJSON {
		items := s.view.ChildrenOf(container)
		out := make([]ItemJSON, 0, len(items))
		for _, it := range items {
			node := itemJSON(it)
			if it.IsFolder() && !seen[node.ID] {
				seen[node.ID] = true
				id := node.ID
				node.Children = build(&id, seen)
			}
			out = append(out, node)
		}
		return out
	}
	writeJSON(w, http.StatusOK, build(nil, map[string]bool{}))
}

// handleListBookmarks returns all bookmarks, or those of ?document= sorted
// by position.
func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc := r.URL.Query().Get("document"); doc != "" {
		writeJSON(w, http.StatusOK, s.store.GetBookmarksForFile(doc))
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetAllBookmarks())
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.store.GetBookmark(chi.URLParam(r, "id"))
	if b == nil {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string         `json:"name"`
		Location model.Location `json:"location"`
		FolderID string         `json:"folderId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Location.DocumentRef == "" {
		writeError(w, http.StatusBadRequest, "location.documentRef is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.AddBookmark(req.Location, req.Name, optional(req.FolderID))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store.GetBookmark(id))
}

func (s *Server) handleRenameBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetBookmark(id) == nil {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err := s.store.RenameBookmark(id, req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetBookmark(id))
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetBookmark(id) == nil {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err := s.store.RemoveBookmark(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folderId"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetBookmark(id) == nil {
		writeError(w, http.StatusNotFound, "bookmark not found")
		return
	}
	if err := s.store.MoveBookmark(id, optional(req.FolderID)); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetBookmark(id))
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, s.store.GetAllFolders())
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.store.GetFolder(chi.URLParam(r, "id"))
	if f == nil {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID string `json:"parentId"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.CreateFolder(req.Name, optional(req.ParentID))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store.GetFolder(id))
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetFolder(id) == nil {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	if err := s.store.RenameFolder(id, req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetFolder(id))
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetFolder(id) == nil {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	if err := s.store.DeleteFolder(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parentId"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.GetFolder(id) == nil {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	if err := s.store.MoveFolder(id, optional(req.ParentID)); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.GetFolder(id))
}

// handleReorder moves an item within its sibling group by index.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		From int    `json:"from"`
		To   int    `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReorderBySplice(req.ID, req.From, req.To); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeSiblings(w, req.ID)
}

// handlePlace puts an item before or after a sibling.
func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
		Position string `json:"position"`
	}
	if !decode(w, r, &req) {
		return
	}

	var pos model.DropPosition
	switch req.Position {
	case "", "before":
		pos = model.DropBefore
	case "after":
		pos = model.DropAfter
	default:
		writeError(w, http.StatusBadRequest, "position must be before or after")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReorderByDragDrop(req.SourceID, req.TargetID, pos); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeSiblings(w, req.SourceID)
}

func (s *Server) writeSiblings(w http.ResponseWriter, id string) {
	group := s.store.SiblingGroup(id)
	if group == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// handleDrop resolves a drop of sourceId onto targetId (or onto empty
// space when targetId is absent) and applies it.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
		DryRun   bool   `json:"dryRun"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.view.Lookup(req.SourceID)
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	var target *view.Item
	if req.TargetID != "" {
		t, ok := s.view.Lookup(req.TargetID)
		if !ok {
			writeError(w, http.StatusNotFound, "target not found")
			return
		}
		target = &t
	}

	in := s.view.ResolveDrop(source, target)
	if !req.DryRun {
		if err := view.Apply(s.store, in); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, intentJSON(in))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.store.Export()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc model.Document
	if !decode(w, r, &doc) {
		return
	}

	s.mu.Lock()
	res := s.store.Import(&doc)
	s.mu.Unlock()

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
		logger().Warningf("import rejected: %s", res.Message)
	}
	writeJSON(w, status, res)
}
