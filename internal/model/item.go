package model

// ItemKind distinguishes between folders and bookmarks in a sibling group.
type ItemKind int

const (
	KindFolder ItemKind = iota
	KindBookmark
)

func (k ItemKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "bookmark"
}

// ParseItemKind parses "folder" or "bookmark".
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "folder":
		return KindFolder, true
	case "bookmark":
		return KindBookmark, true
	}
	return 0, false
}

// SiblingItem is one entry of a container's ordered children.
type SiblingItem struct {
	ID        string   `json:"id"`
	Kind      ItemKind `json:"kind"`
	SortOrder int      `json:"sortOrder"`

	seq uint64
}

// DropPosition says where a dragged item lands relative to its target.
type DropPosition int

const (
	DropBefore DropPosition = iota
	DropAfter
)

func (p DropPosition) String() string {
	if p == DropAfter {
		return "after"
	}
	return "before"
}
