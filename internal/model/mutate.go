package model

// AddBookmark creates a bookmark that sorts after every existing item and
// returns its id. A folderID that does not exist is repaired to root.
// The id is valid even when the returned error reports a failed save.
func (s *Store) AddBookmark(loc Location, name string, folderID *string) (string, error) {
	b := NewBookmark(NewBookmarkParams{
		Name:     name,
		Location: loc,
		FolderID: s.existingFolder(folderID),
	})
	for s.idTaken(b.ID) {
		b.ID = GenerateID()
	}
	b.SortOrder = s.nextSortOrder()
	b.seq = s.nextSeq()
	s.bookmarks[b.ID] = &b
	return b.ID, s.persist()
}

// RemoveBookmark deletes a bookmark. Unknown ids are ignored.
func (s *Store) RemoveBookmark(id string) error {
	if _, ok := s.bookmarks[id]; !ok {
		return nil
	}
	delete(s.bookmarks, id)
	return s.persist()
}

// RenameBookmark replaces a bookmark's name. Unknown ids are ignored.
func (s *Store) RenameBookmark(id, name string) error {
	b, ok := s.bookmarks[id]
	if !ok {
		return nil
	}
	b.Name = name
	return s.persist()
}

// MoveBookmark puts a bookmark into target (nil = root).
// Unknown bookmarks are ignored; an unknown target returns ErrFolderNotFound.
func (s *Store) MoveBookmark(id string, target *string) error {
	b, ok := s.bookmarks[id]
	if !ok {
		return nil
	}
	if target != nil && s.folders[*target] == nil {
		return ErrFolderNotFound
	}
	b.FolderID = clonePtr(target)
	return s.persist()
}

// CreateFolder creates a folder that sorts after every existing item and
// returns its id. A parentID that does not exist is repaired to root.
func (s *Store) CreateFolder(name string, parentID *string) (string, error) {
	f := NewFolder(NewFolderParams{
		Name:     name,
		ParentID: s.existingFolder(parentID),
	})
	for s.idTaken(f.ID) {
		f.ID = GenerateID()
	}
	f.SortOrder = s.nextSortOrder()
	f.seq = s.nextSeq()
	s.folders[f.ID] = &f
	return f.ID, s.persist()
}

// RenameFolder replaces a folder's name. Unknown ids are ignored.
func (s *Store) RenameFolder(id, name string) error {
	f, ok := s.folders[id]
	if !ok {
		return nil
	}
	f.Name = name
	return s.persist()
}

// DeleteFolder removes a folder and promotes its bookmarks and subfolders
// to the folder's own parent. Unknown ids are ignored.
func (s *Store) DeleteFolder(id string) error {
	folder, ok := s.folders[id]
	if !ok {
		return nil
	}

	for _, b := range s.bookmarks {
		if b.FolderID != nil && *b.FolderID == id {
			b.FolderID = clonePtr(folder.ParentID)
		}
	}
	for _, sub := range s.folders {
		if sub.ParentID != nil && *sub.ParentID == id {
			sub.ParentID = clonePtr(folder.ParentID)
		}
	}

	delete(s.folders, id)
	return s.persist()
}

// MoveFolder puts a folder under target (nil = root). Moving a folder into
// itself or one of its descendants is refused with ErrCycle and leaves the
// store unchanged. Unknown folders are ignored.
func (s *Store) MoveFolder(id string, target *string) error {
	f, ok := s.folders[id]
	if !ok {
		return nil
	}
	if target != nil {
		if *target == id {
			return ErrCycle
		}
		if s.folders[*target] == nil {
			return ErrFolderNotFound
		}
		if s.isDescendant(*target, id) {
			logger().Debugf("refusing to move folder %s under its descendant %s", id, *target)
			return ErrCycle
		}
	}
	f.ParentID = clonePtr(target)
	return s.persist()
}

// isDescendant reports whether folderID equals ancestorID or lies below it.
// The upward walk is bounded by the folder count.
func (s *Store) isDescendant(folderID, ancestorID string) bool {
	cur := &folderID
	for steps := 0; cur != nil && steps <= len(s.folders); steps++ {
		if *cur == ancestorID {
			return true
		}
		f := s.folders[*cur]
		if f == nil {
			return false
		}
		cur = f.ParentID
	}
	return false
}

func (s *Store) existingFolder(id *string) *string {
	if id == nil {
		return nil
	}
	if s.folders[*id] == nil {
		logger().Warningf("folder %s does not exist, using root", *id)
		return nil
	}
	return clonePtr(id)
}
