package model

import (
	"slices"
	"strings"
)

// BookmarkRecord is the persisted and exported shape of a Bookmark.
type BookmarkRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Location  Location `json:"location"`
	FolderID  *string  `json:"folderId,omitempty"`
	SortOrder *int     `json:"sortOrder,omitempty"`
}

// FolderRecord is the persisted and exported shape of a Folder.
type FolderRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId,omitempty"`
	SortOrder *int    `json:"sortOrder,omitempty"`
}

// Snapshot holds the full persisted state. Both lists are in insertion order.
type Snapshot struct {
	Bookmarks []BookmarkRecord `json:"bookmarks"`
	Folders   []FolderRecord   `json:"folders"`
}

// Record converts the bookmark to its persisted shape.
func (b Bookmark) Record() BookmarkRecord {
	order := b.SortOrder
	return BookmarkRecord{
		ID:        b.ID,
		Name:      b.Name,
		Location:  b.Location,
		FolderID:  clonePtr(b.FolderID),
		SortOrder: &order,
	}
}

// Record converts the folder to its persisted shape.
func (f Folder) Record() FolderRecord {
	order := f.SortOrder
	return FolderRecord{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  clonePtr(f.ParentID),
		SortOrder: &order,
	}
}

func (s *Store) snapshot() *Snapshot {
	snap := &Snapshot{
		Bookmarks: make([]BookmarkRecord, 0, len(s.bookmarks)),
		Folders:   make([]FolderRecord, 0, len(s.folders)),
	}
	for _, b := range s.GetAllBookmarks() {
		snap.Bookmarks = append(snap.Bookmarks, b.Record())
	}
	for _, f := range s.GetAllFolders() {
		snap.Folders = append(snap.Folders, f.Record())
	}
	return snap
}

// restore fills an empty store from a snapshot, repairing what it must:
// missing or duplicate ids, dangling parent references and folder cycles.
// It returns the number of repaired records.
func (s *Store) restore(snap *Snapshot) int {
	repaired := 0

	for _, r := range snap.Folders {
		f := Folder{ID: r.ID, Name: r.Name, ParentID: clonePtr(r.ParentID), seq: s.nextSeq()}
		if r.SortOrder != nil {
			f.SortOrder = *r.SortOrder
		}
		if f.ID == "" || s.idTaken(f.ID) {
			f.ID = s.freshID()
			repaired++
		}
		s.folders[f.ID] = &f
	}

	for _, r := range snap.Bookmarks {
		b := Bookmark{ID: r.ID, Name: r.Name, Location: r.Location, FolderID: clonePtr(r.FolderID), seq: s.nextSeq()}
		if r.SortOrder != nil {
			b.SortOrder = *r.SortOrder
		}
		if b.ID == "" || s.idTaken(b.ID) {
			b.ID = s.freshID()
			repaired++
		}
		s.bookmarks[b.ID] = &b
	}

	for _, f := range s.folders {
		if f.ParentID != nil && s.folders[*f.ParentID] == nil {
			f.ParentID = nil
			repaired++
		}
	}
	for _, b := range s.bookmarks {
		if b.FolderID != nil && s.folders[*b.FolderID] == nil {
			b.FolderID = nil
			repaired++
		}
	}

	return repaired + s.breakCycles()
}

// breakCycles moves to root every folder that can reach itself through its
// parent chain. Folders are visited in insertion order so the repair is
// deterministic.
func (s *Store) breakCycles() int {
	broken := 0
	for _, f := range s.sortedFolders() {
		cur := f.ParentID
		for steps := 0; cur != nil && steps <= len(s.folders); steps++ {
			if *cur == f.ID {
				f.ParentID = nil
				broken++
				break
			}
			parent := s.folders[*cur]
			if parent == nil {
				break
			}
			cur = parent.ParentID
		}
	}
	return broken
}

func (s *Store) sortedFolders() []*Folder {
	out := make([]*Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *Folder) int { return compareSeq(a.seq, b.seq) })
	return out
}

func (s *Store) sortedBookmarks() []*Bookmark {
	out := make([]*Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *Bookmark) int { return compareSeq(a.seq, b.seq) })
	return out
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
