package exporter

import (
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/cm/internal/view"
)

// ExportHTML exports the tree to Netscape bookmark HTML format.
// Bookmarks carry their position in LINE and COLUMN attributes (zero-based).
func ExportHTML(p *view.Projection) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	// Write root level items
	writeItems(&b, p, nil, 1)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeItems recursively writes folders and bookmarks for a given parent,
// in display order.
func writeItems(b *strings.Builder, p *view.Projection, parentID *string, indent int) {
	prefix := strings.Repeat("    ", indent)

	for _, item := range p.ChildrenOf(parentID) {
		if item.IsFolder() {
			fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(item.Title()))
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)

			folderID := item.ID()
			writeItems(b, p, &folderID, indent+1)

			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
			continue
		}

		loc := item.Bookmark.Location
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\" LINE=\"%d\" COLUMN=\"%d\">%s</A>\n",
			prefix,
			html.EscapeString(loc.DocumentRef),
			loc.Line,
			loc.Column,
			html.EscapeString(item.Title()),
		)
	}
}
