package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/nikbrunner/cm/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/cm-export-YYYY-MM-DD.json
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("cm-export-%s.json", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc model.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteFile writes the document to path. Paths ending in .zst are zstd
// compressed.
func WriteFile(path string, doc model.Document) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, ".zst") {
		return WriteJSON(f, doc)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := WriteJSON(zw, doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
