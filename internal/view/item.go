package view

import "github.com/nikbrunner/cm/internal/model"

// Item represents either a folder or bookmark in the tree.
type Item struct {
	Kind     model.ItemKind
	Folder   *model.Folder
	Bookmark *model.Bookmark
}

// FolderItem wraps a folder.
func FolderItem(f model.Folder) Item {
	return Item{Kind: model.KindFolder, Folder: &f}
}

// BookmarkItem wraps a bookmark.
func BookmarkItem(b model.Bookmark) Item {
	return Item{Kind: model.KindBookmark, Bookmark: &b}
}

// ID returns the item's ID regardless of type.
func (i Item) ID() string {
	if i.Kind == model.KindFolder {
		return i.Folder.ID
	}
	return i.Bookmark.ID
}

// Title returns a display title for the item.
func (i Item) Title() string {
	if i.Kind == model.KindFolder {
		return i.Folder.Name
	}
	return i.Bookmark.Name
}

// Description returns "file:line" for bookmarks and "" for folders.
func (i Item) Description() string {
	if i.Kind == model.KindFolder {
		return ""
	}
	return i.Bookmark.Location.Short()
}

// Container returns the ID of the folder holding the item, nil at root.
func (i Item) Container() *string {
	if i.Kind == model.KindFolder {
		return i.Folder.ParentID
	}
	return i.Bookmark.FolderID
}

// SortOrder returns the item's position key among its siblings.
func (i Item) SortOrder() int {
	if i.Kind == model.KindFolder {
		return i.Folder.SortOrder
	}
	return i.Bookmark.SortOrder
}

// IsFolder returns true if this item is a folder.
func (i Item) IsFolder() bool {
	return i.Kind == model.KindFolder
}
