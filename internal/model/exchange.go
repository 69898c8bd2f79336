package model

import (
	"errors"
	"fmt"
	"time"
)

// ExportVersion is written into every exported Document.
const ExportVersion = "1.0.0"

// Document is the portable export format.
type Document struct {
	Version    string           `json:"version"`
	ExportDate string           `json:"exportDate"`
	Bookmarks  []BookmarkRecord `json:"bookmarks"`
	Folders    []FolderRecord   `json:"folders"`
}

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Bookmarks int    `json:"bookmarks"`
	Folders   int    `json:"folders"`
}

// Export returns the whole store as a Document.
func (s *Store) Export() Document {
	snap := s.snapshot()
	return Document{
		Version:    ExportVersion,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Bookmarks:  snap.Bookmarks,
		Folders:    snap.Folders,
	}
}

// Import replaces the store's content with doc. Every imported item gets a
// fresh id; folder references are rewritten through the old-to-new id map
// and unknown references fall back to root. The new state is built aside
// and swapped in only when it is complete and saved, so a failure leaves
// the store as it was.
func (s *Store) Import(doc *Document) ImportResult {
	if doc == nil || doc.Version == "" || doc.Bookmarks == nil || doc.Folders == nil {
		return ImportResult{Message: "invalid bookmark document: version, bookmarks and folders are required"}
	}

	staged, err := stageImport(doc)
	if err != nil {
		return ImportResult{Message: fmt.Sprintf("import failed: %s", err)}
	}

	s.swap(staged)
	if err := s.persist(); err != nil {
		s.swap(staged)
		return ImportResult{Message: fmt.Sprintf("import failed: %s", err)}
	}

	nb, nf := s.Len()
	return ImportResult{
		Success:   true,
		Message:   fmt.Sprintf("imported %d bookmarks and %d folders", nb, nf),
		Bookmarks: nb,
		Folders:   nf,
	}
}

// swap exchanges the content of s and other, leaving persisters in place.
func (s *Store) swap(other *Store) {
	s.bookmarks, other.bookmarks = other.bookmarks, s.bookmarks
	s.folders, other.folders = other.folders, s.folders
	s.seq, other.seq = other.seq, s.seq
}

func stageImport(doc *Document) (*Store, error) {
	staged := NewStore()

	folderIDs := make(map[string]string, len(doc.Folders))
	for _, r := range doc.Folders {
		f := Folder{
			ID:       staged.freshID(),
			Name:     r.Name,
			ParentID: clonePtr(r.ParentID),
		}
		if r.SortOrder != nil {
			f.SortOrder = *r.SortOrder
		} else {
			f.SortOrder = staged.nextSortOrder()
		}
		f.seq = staged.nextSeq()
		staged.folders[f.ID] = &f
		if r.ID != "" {
			folderIDs[r.ID] = f.ID
		}
	}

	for _, f := range staged.folders {
		f.ParentID = remap(f.ParentID, folderIDs)
	}
	if n := staged.breakCycles(); n > 0 {
		logger().Warningf("import: moved %d folders with cyclic parents to root", n)
	}

	var errs []error
	for i, r := range doc.Bookmarks {
		if err := validateLocation(r.Location); err != nil {
			errs = append(errs, fmt.Errorf("bookmark %d (%q): %w", i, r.Name, err))
			continue
		}
		b := Bookmark{
			ID:       staged.freshID(),
			Name:     r.Name,
			Location: r.Location,
			FolderID: remap(r.FolderID, folderIDs),
		}
		if r.SortOrder != nil {
			b.SortOrder = *r.SortOrder
		} else {
			b.SortOrder = staged.nextSortOrder()
		}
		b.seq = staged.nextSeq()
		staged.bookmarks[b.ID] = &b
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return staged, nil
}

func remap(id *string, ids map[string]string) *string {
	if id == nil {
		return nil
	}
	if mapped, ok := ids[*id]; ok {
		return &mapped
	}
	return nil
}

func validateLocation(loc Location) error {
	switch {
	case loc.DocumentRef == "":
		return errors.New("location has no document")
	case loc.Line < 0 || loc.Column < 0:
		return fmt.Errorf("location %d:%d is negative", loc.Line, loc.Column)
	}
	return nil
}
