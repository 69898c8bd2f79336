package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/nikbrunner/cm/internal/model"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ReadJSON decodes an export document. zstd-compressed input is detected
// and decompressed.
func ReadJSON(r io.Reader) (*model.Document, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br

	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	var doc model.Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bookmark document: %w", err)
	}
	return &doc, nil
}

// ReadFile reads a document from path. .html and .htm files are parsed as
// Netscape bookmarks, anything else as a JSON export.
func ReadFile(path string) (*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ParseHTML(f)
	default:
		return ReadJSON(f)
	}
}
