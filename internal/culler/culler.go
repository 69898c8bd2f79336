package culler

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/nikbrunner/cm/internal/model"
)

// Status represents the health of a bookmark's location.
type Status int

const (
	Healthy     Status = iota // document exists and the line is inside it
	Dead                      // document is gone
	Drifted                   // document is shorter than the bookmarked line
	Unreachable               // permission denied, directory, remote scheme, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	case Drifted:
		return "drifted"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single bookmark.
type Result struct {
	Bookmark *model.Bookmark
	Status   Status
	Lines    int    // number of lines in the document (0 if it could not be read)
	Error    string // reason for dead or unreachable locations
}

// ProgressFunc is called after each bookmark is checked.
// completed is the number of bookmarks checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// CheckBookmarks checks all bookmark locations concurrently and returns
// results in the order of bookmarks.
func CheckBookmarks(bookmarks []model.Bookmark, concurrency int, onProgress ProgressFunc) []Result {
	if len(bookmarks) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(bookmarks))
	jobs := make(chan int, len(bookmarks))
	var wg sync.WaitGroup

	// Progress tracking
	var progressMu sync.Mutex
	completed := 0

	// Start workers
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = checkLocation(&bookmarks[idx])

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(bookmarks))
					progressMu.Unlock()
				}
			}
		}()
	}

	// Send jobs
	for i := range bookmarks {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	log := commonlog.GetLogger("cm.culler")
	for _, r := range results {
		if r.Status != Healthy {
			log.Debugf("%s %s: %s", r.Status, r.Bookmark.Location, r.Error)
		}
	}
	return results
}

// checkLocation checks a single bookmark and returns the result.
func checkLocation(bookmark *model.Bookmark) Result {
	result := Result{
		Bookmark: bookmark,
	}

	if scheme := schemeOf(bookmark.Location.DocumentRef); scheme != "" && scheme != "file" {
		result.Status = Unreachable
		result.Error = "Unsupported scheme " + scheme
		return result
	}

	lines, err := countLines(bookmark.Location.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Status = Dead
			result.Error = "Document not found"
		} else {
			result.Status = Unreachable
			result.Error = normalizeError(err)
		}
		return result
	}

	result.Lines = lines
	if bookmark.Location.Line >= lines {
		result.Status = Drifted
		return result
	}

	result.Status = Healthy
	return result
}

// schemeOf returns the lower-cased URI scheme of ref, or "" for plain paths.
// Single-letter schemes are Windows drive letters.
func schemeOf(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) < 2 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// countLines returns the number of lines in the file at path. A trailing
// line without a newline counts; an empty file has one line.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, errIsDir
	}

	lines := 1
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		lines += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

var errIsDir = errors.New("is a directory")

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(err error) string {
	switch {
	case errors.Is(err, errIsDir):
		return "Is a directory"
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	default:
		return err.Error()
	}
}
