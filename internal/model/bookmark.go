package model

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Location points at a zero-based line and column inside a document.
type Location struct {
	DocumentRef string `json:"documentRef"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
}

// Path returns the filesystem path of the document.
// file:// URIs are decoded; references without a scheme are returned as-is.
func (l Location) Path() string {
	if strings.HasPrefix(l.DocumentRef, "file://") {
		if u, err := url.Parse(l.DocumentRef); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return l.DocumentRef
}

// String formats the location as path:line:column with one-based numbers.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path(), l.Line+1, l.Column+1)
}

// Short returns base name and one-based line, e.g. "main.go:12".
func (l Location) Short() string {
	return fmt.Sprintf("%s:%d", filepath.Base(l.Path()), l.Line+1)
}

// Bookmark is a named reference to a location inside a document.
type Bookmark struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Location  Location `json:"location"`
	FolderID  *string  `json:"folderId"` // nil = root level
	SortOrder int      `json:"sortOrder"`

	seq uint64
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Name     string
	Location Location
	FolderID *string
}

// NewBookmark creates a Bookmark with a generated ID.
// The sort order is assigned by the store.
func NewBookmark(params NewBookmarkParams) Bookmark {
	return Bookmark{
		ID:       GenerateID(),
		Name:     params.Name,
		Location: params.Location,
		FolderID: params.FolderID,
	}
}
