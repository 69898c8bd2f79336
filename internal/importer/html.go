package importer

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/cm/internal/model"
)

// ParseHTML parses Netscape bookmark HTML into an importable Document.
// Folder ids are placeholders that Store.Import replaces. Sort orders follow
// document order. LINE and COLUMN attributes give the location; missing
// attributes mean line or column 0.
func ParseHTML(r io.Reader) (*model.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	out := &model.Document{
		Version:   model.ExportVersion,
		Bookmarks: []model.BookmarkRecord{},
		Folders:   []model.FolderRecord{},
	}
	order := 0
	nextOrder := func() *int {
		v := order
		order++
		return &v
	}

	// Track current folder stack for hierarchy
	var folderStack []*string // stack of folder IDs, nil = root
	var pendingFolder *string // folder waiting to be pushed on next DL

	current := func() *string {
		if len(folderStack) == 0 {
			return nil
		}
		return folderStack[len(folderStack)-1]
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name := getTextContent(n)
				if name != "" {
					id := model.GenerateID()
					out.Folders = append(out.Folders, model.FolderRecord{
						ID:        id,
						Name:      name,
						ParentID:  current(),
						SortOrder: nextOrder(),
					})
					// pushed when we see the next DL
					pendingFolder = &id
				}
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}

				name := getTextContent(n)
				if name == "" {
					name = href
				}

				out.Bookmarks = append(out.Bookmarks, model.BookmarkRecord{
					ID:   model.GenerateID(),
					Name: name,
					Location: model.Location{
						DocumentRef: href,
						Line:        getIntAttr(n, "line"),
						Column:      getIntAttr(n, "column"),
					},
					FolderID:  current(),
					SortOrder: nextOrder(),
				})
				return

			case "dl":
				pushedFolder := false
				if pendingFolder != nil {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = nil
					pushedFolder = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushedFolder && len(folderStack) > 0 {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return out, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}

func getIntAttr(n *html.Node, key string) int {
	v, err := strconv.Atoi(getAttr(n, key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
