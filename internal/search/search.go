package search

import (
	"path/filepath"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/cm/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkKeys implements fuzzy.Source for a bookmark slice. Each bookmark
// is matched by its name followed by the base name of its document.
type bookmarkKeys []*model.Bookmark

func (bk bookmarkKeys) String(i int) string {
	return Key(*bk[i])
}

func (bk bookmarkKeys) Len() int {
	return len(bk)
}

// Key returns the string a bookmark is matched against. Matched indexes
// below len(b.Name) fall inside the name.
func Key(b model.Bookmark) string {
	return b.Name + " " + filepath.Base(b.Location.Path())
}

// FuzzySearchBookmarks searches bookmarks by name and document using fuzzy
// matching. Returns results sorted by match score (best first).
func FuzzySearchBookmarks(bookmarks []model.Bookmark, query string) []SearchResult {
	if query == "" {
		return nil
	}

	keys := make(bookmarkKeys, len(bookmarks))
	for i := range bookmarks {
		keys[i] = &bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, keys)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       keys[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// All wraps every bookmark in a zero-score result, preserving order.
func All(bookmarks []model.Bookmark) []SearchResult {
	results := make([]SearchResult, len(bookmarks))
	for i := range bookmarks {
		results[i] = SearchResult{Bookmark: &bookmarks[i]}
	}
	return results
}
