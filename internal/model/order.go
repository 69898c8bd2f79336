package model

import "slices"

// ReorderBySplice removes the item at index from of itemID's sibling group
// and reinserts it at index to, counted after the removal. Every sibling's
// sort order is then rewritten to its dense position 0..n-1.
//
// An out-of-range from is ignored; to is clamped into the group.
func (s *Store) ReorderBySplice(itemID string, from, to int) error {
	items := s.SiblingGroup(itemID)
	if from < 0 || from >= len(items) {
		return nil
	}

	moved := items[from]
	items = slices.Delete(items, from, from+1)
	to = max(0, min(to, len(items)))
	items = slices.Insert(items, to, moved)

	for i, item := range items {
		switch item.Kind {
		case KindBookmark:
			if b := s.bookmarks[item.ID]; b != nil {
				b.SortOrder = i
			}
		case KindFolder:
			if f := s.folders[item.ID]; f != nil {
				f.SortOrder = i
			}
		}
	}
	return s.persist()
}

// ReorderByDragDrop moves sourceID next to targetID inside source's sibling
// group. Nothing happens unless both ids are in that group.
func (s *Store) ReorderByDragDrop(sourceID, targetID string, pos DropPosition) error {
	items := s.SiblingGroup(sourceID)
	sourceIdx := indexOf(items, sourceID)
	targetIdx := indexOf(items, targetID)
	if sourceIdx < 0 || targetIdx < 0 {
		return nil
	}

	if pos == DropAfter {
		targetIdx++
	}
	// The source's removal shifts everything after it up by one.
	if sourceIdx < targetIdx {
		targetIdx--
	}
	return s.ReorderBySplice(sourceID, sourceIdx, targetIdx)
}

func indexOf(items []SiblingItem, id string) int {
	return slices.IndexFunc(items, func(item SiblingItem) bool { return item.ID == id })
}
