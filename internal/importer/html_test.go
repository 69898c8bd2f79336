package importer_test

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/cm/internal/exporter"
	"github.com/nikbrunner/cm/internal/importer"
	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/view"
)

func TestParseHTML_Hierarchy(t *testing.T) {
	input := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3>Backend</H3>
    <DL><p>
        <DT><H3>HTTP</H3>
        <DL><p>
            <DT><A HREF="file:///srv/server.go" LINE="10" COLUMN="4">Server</A>
        </DL><p>
        <DT><A HREF="db.go" LINE="x">Database</A>
    </DL><p>
    <DT><A HREF="README.md"></A>
    <DT><A>no href</A>
</DL><p>`

	doc, err := importer.ParseHTML(strings.NewReader(input))
	assert.NilError(t, err)

	assert.Equal(t, doc.Version, model.ExportVersion)
	assert.Equal(t, len(doc.Folders), 2)
	assert.Equal(t, len(doc.Bookmarks), 3)

	backend, httpFolder := doc.Folders[0], doc.Folders[1]
	assert.Equal(t, backend.Name, "Backend")
	assert.Assert(t, backend.ParentID == nil)
	assert.Equal(t, *httpFolder.ParentID, backend.ID)

	server := doc.Bookmarks[0]
	assert.Equal(t, server.Name, "Server")
	assert.Equal(t, server.Location, model.Location{DocumentRef: "file:///srv/server.go", Line: 10, Column: 4})
	assert.Equal(t, *server.FolderID, httpFolder.ID)

	database := doc.Bookmarks[1]
	assert.Equal(t, database.Location.Line, 0)
	assert.Equal(t, *database.FolderID, backend.ID)

	readme := doc.Bookmarks[2]
	assert.Equal(t, readme.Name, "README.md")
	assert.Assert(t, readme.FolderID == nil)

	// document order becomes sort order
	assert.Assert(t, *backend.SortOrder < *httpFolder.SortOrder)
	assert.Assert(t, *server.SortOrder < *database.SortOrder)
	assert.Assert(t, *database.SortOrder < *readme.SortOrder)
}

func TestHTML_RoundTripThroughStore(t *testing.T) {
	src := model.NewStore()
	dir, err := src.CreateFolder("dir", nil)
	assert.NilError(t, err)
	_, err = src.AddBookmark(model.Location{DocumentRef: "a.go", Line: 3, Column: 1}, "a", &dir)
	assert.NilError(t, err)
	_, err = src.AddBookmark(model.Location{DocumentRef: "b.go", Line: 7}, "b", nil)
	assert.NilError(t, err)

	doc, err := importer.ParseHTML(strings.NewReader(exporter.ExportHTML(view.New(src))))
	assert.NilError(t, err)

	dst := model.NewStore()
	res := dst.Import(doc)
	assert.Assert(t, res.Success, res.Message)

	p := view.New(dst)
	root := p.ChildrenOf(nil)
	assert.Equal(t, len(root), 2)
	assert.Equal(t, root[0].Title(), "dir")
	assert.Equal(t, root[1].Title(), "b")

	inner := p.ChildrenOf(&root[0].Folder.ID)
	assert.Equal(t, len(inner), 1)
	assert.Equal(t, inner[0].Bookmark.Location, model.Location{DocumentRef: "a.go", Line: 3, Column: 1})
}
