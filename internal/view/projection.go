// Package view computes the displayable hierarchy of a store and turns
// drag-and-drop gestures into store mutations. It never writes on its own.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/nikbrunner/cm/internal/model"
)

// Reader is the read-only part of the store the projection needs.
type Reader interface {
	ChildrenOf(container *string) []model.SiblingItem
	GetFolder(id string) *model.Folder
	GetBookmark(id string) *model.Bookmark
}

// Projection reads a store and presents it as an ordered tree.
type Projection struct {
	r Reader
}

// New creates a Projection over r.
func New(r Reader) *Projection {
	return &Projection{r: r}
}

// Lookup returns the item with the given id.
func (p *Projection) Lookup(id string) (Item, bool) {
	if f := p.r.GetFolder(id); f != nil {
		return Item{Kind: model.KindFolder, Folder: f}, true
	}
	if b := p.r.GetBookmark(id); b != nil {
		return Item{Kind: model.KindBookmark, Bookmark: b}, true
	}
	return Item{}, false
}

// ChildrenOf returns the items directly inside container (nil = root).
// Folders and bookmarks interleave in one sort order.
func (p *Projection) ChildrenOf(container *string) []Item {
	siblings := p.r.ChildrenOf(container)
	items := make([]Item, 0, len(siblings))
	for _, s := range siblings {
		if item, ok := p.Lookup(s.ID); ok {
			items = append(items, item)
		}
	}
	return items
}

// WalkFunc is called for every item in depth-first order. Returning false
// skips the children of a folder.
type WalkFunc func(depth int, item Item) bool

// Walk visits the subtree below container depth-first in display order.
func (p *Projection) Walk(container *string, fn WalkFunc) {
	p.walk(container, 0, make(map[string]bool), fn)
}

func (p *Projection) walk(container *string, depth int, seen map[string]bool, fn WalkFunc) {
	for _, item := range p.ChildrenOf(container) {
		descend := fn(depth, item)
		if !item.IsFolder() || !descend || seen[item.ID()] {
			continue
		}
		seen[item.ID()] = true
		id := item.ID()
		p.walk(&id, depth+1, seen, fn)
	}
}

// Render writes an indented tree of the subtree below container.
// Each line starts with the first eight characters of the item id.
func (p *Projection) Render(w io.Writer, container *string) error {
	var err error
	p.Walk(container, func(depth int, item Item) bool {
		if err != nil {
			return false
		}
		indent := strings.Repeat("  ", depth)
		if item.IsFolder() {
			_, err = fmt.Fprintf(w, "%s  %s%s/\n", shortID(item.ID()), indent, item.Title())
		} else {
			_, err = fmt.Fprintf(w, "%s  %s%s  (%s)\n", shortID(item.ID()), indent, item.Title(), item.Description())
		}
		return true
	})
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
