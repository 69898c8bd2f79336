package model

import (
	"fmt"
	"slices"

	"github.com/tliron/commonlog"
)

// Persister loads and saves the full store state.
type Persister interface {
	Load() (*Snapshot, error)
	Save(snap *Snapshot) error
}

// Store owns all bookmarks and folders and enforces the hierarchy invariants.
// It is not safe for concurrent use.
type Store struct {
	bookmarks map[string]*Bookmark
	folders   map[string]*Folder
	seq       uint64
	persister Persister
}

// NewStore creates an empty in-memory Store that is never persisted.
func NewStore() *Store {
	return &Store{
		bookmarks: make(map[string]*Bookmark),
		folders:   make(map[string]*Folder),
	}
}

// Open loads a Store from p. Inconsistent records are repaired and the
// repaired state is written back. Every later mutation is saved through p.
func Open(p Persister) (*Store, error) {
	snap, err := p.Load()
	if err != nil {
		return nil, err
	}

	s := NewStore()
	s.persister = p
	if repaired := s.restore(snap); repaired > 0 {
		logger().Warningf("repaired %d inconsistent records while loading", repaired)
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func logger() commonlog.Logger {
	return commonlog.GetLogger("cm.model")
}

// persist writes the full state. It is the last step of every mutation.
func (s *Store) persist() error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(s.snapshot()); err != nil {
		logger().Errorf("saving store: %s", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// nextSortOrder returns one more than the largest sort order in the store,
// or 0 if the store is empty. New items therefore sort last in any container.
func (s *Store) nextSortOrder() int {
	next, empty := 0, true
	for _, b := range s.bookmarks {
		if empty || b.SortOrder >= next {
			next = b.SortOrder + 1
		}
		empty = false
	}
	for _, f := range s.folders {
		if empty || f.SortOrder >= next {
			next = f.SortOrder + 1
		}
		empty = false
	}
	return next
}

func (s *Store) idTaken(id string) bool {
	_, isBookmark := s.bookmarks[id]
	_, isFolder := s.folders[id]
	return isBookmark || isFolder
}

// freshID returns an id unused by any bookmark or folder.
func (s *Store) freshID() string {
	id := GenerateID()
	for s.idTaken(id) {
		id = GenerateID()
	}
	return id
}

// Len returns the number of bookmarks and folders.
func (s *Store) Len() (bookmarks, folders int) {
	return len(s.bookmarks), len(s.folders)
}

// GetBookmark finds a bookmark by ID, returns nil if not found.
// The result is a copy.
func (s *Store) GetBookmark(id string) *Bookmark {
	b, ok := s.bookmarks[id]
	if !ok {
		return nil
	}
	c := *b
	c.FolderID = clonePtr(b.FolderID)
	return &c
}

// GetFolder finds a folder by ID, returns nil if not found.
// The result is a copy.
func (s *Store) GetFolder(id string) *Folder {
	f, ok := s.folders[id]
	if !ok {
		return nil
	}
	c := *f
	c.ParentID = clonePtr(f.ParentID)
	return &c
}

// GetAllBookmarks returns copies of all bookmarks in insertion order.
func (s *Store) GetAllBookmarks() []Bookmark {
	out := make([]Bookmark, 0, len(s.bookmarks))
	for _, b := range s.sortedBookmarks() {
		c := *b
		c.FolderID = clonePtr(b.FolderID)
		out = append(out, c)
	}
	return out
}

// GetAllFolders returns copies of all folders in insertion order.
func (s *Store) GetAllFolders() []Folder {
	out := make([]Folder, 0, len(s.folders))
	for _, f := range s.sortedFolders() {
		c := *f
		c.ParentID = clonePtr(f.ParentID)
		out = append(out, c)
	}
	return out
}

// GetBookmarksForFile returns the bookmarks whose location refers to
// documentRef, ordered by line and column.
func (s *Store) GetBookmarksForFile(documentRef string) []Bookmark {
	var out []Bookmark
	for _, b := range s.GetAllBookmarks() {
		if b.Location.DocumentRef == documentRef {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b Bookmark) int {
		if a.Location.Line != b.Location.Line {
			return a.Location.Line - b.Location.Line
		}
		return a.Location.Column - b.Location.Column
	})
	return out
}

// ChildrenOf returns the folders and bookmarks directly inside container
// (nil = root), ordered by sort order and then by insertion.
func (s *Store) ChildrenOf(container *string) []SiblingItem {
	var items []SiblingItem
	for _, f := range s.folders {
		if ptrEqual(f.ParentID, container) {
			items = append(items, SiblingItem{ID: f.ID, Kind: KindFolder, SortOrder: f.SortOrder, seq: f.seq})
		}
	}
	for _, b := range s.bookmarks {
		if ptrEqual(b.FolderID, container) {
			items = append(items, SiblingItem{ID: b.ID, Kind: KindBookmark, SortOrder: b.SortOrder, seq: b.seq})
		}
	}
	slices.SortFunc(items, func(a, b SiblingItem) int {
		if a.SortOrder != b.SortOrder {
			if a.SortOrder < b.SortOrder {
				return -1
			}
			return 1
		}
		return compareSeq(a.seq, b.seq)
	})
	return items
}

// ContainerOf returns the container of a bookmark or folder.
// ok is false when the id is unknown.
func (s *Store) ContainerOf(id string) (container *string, ok bool) {
	if b, found := s.bookmarks[id]; found {
		return clonePtr(b.FolderID), true
	}
	if f, found := s.folders[id]; found {
		return clonePtr(f.ParentID), true
	}
	return nil, false
}

// SiblingGroup returns every item sharing the container of itemID, itemID
// included, in sibling order. It returns nil for an unknown id.
func (s *Store) SiblingGroup(itemID string) []SiblingItem {
	container, ok := s.ContainerOf(itemID)
	if !ok {
		return nil
	}
	return s.ChildrenOf(container)
}

// Resolve finds an item by exact id or by unique id prefix.
func (s *Store) Resolve(ref string) (string, ItemKind, error) {
	if _, ok := s.bookmarks[ref]; ok {
		return ref, KindBookmark, nil
	}
	if _, ok := s.folders[ref]; ok {
		return ref, KindFolder, nil
	}
	if ref == "" {
		return "", 0, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	var (
		matchID   string
		matchKind ItemKind
		matches   int
	)
	for id := range s.bookmarks {
		if hasPrefixFold(id, ref) {
			matchID, matchKind = id, KindBookmark
			matches++
		}
	}
	for id := range s.folders {
		if hasPrefixFold(id, ref) {
			matchID, matchKind = id, KindFolder
			matches++
		}
	}

	switch matches {
	case 0:
		return "", 0, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return matchID, matchKind, nil
	default:
		return "", 0, fmt.Errorf("%w: %q matches %d items", ErrAmbiguous, ref, matches)
	}
}
