package sandbox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	runtimeerrors "github.com/mesutfelat/cowork-oss-sub004/internal/shared/errors"
)

// TruncationMarker is appended to capped file reads so the model can tell a
// complete file from a clipped one.
const TruncationMarker = "\n... [truncated]"

// ReadResult carries a capped read and its truncation metadata.
type ReadResult struct {
	Content   string
	BytesRead int64
	TotalSize int64
	Truncated bool
}

// ReadFileCapped reads at most maxBytes from path. A capped read appends
// TruncationMarker and sets Truncated instead of returning an error.
func ReadFileCapped(path string, maxBytes int64) (*ReadResult, error) {
	if maxBytes <= 0 {
		return nil, runtimeerrors.New(runtimeerrors.KindIO, "read cap must be positive")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, runtimeerrors.New(runtimeerrors.KindIO, "%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "open %s", path)
	}
	defer f.Close()

	buf := make([]byte, maxBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "read %s", path)
	}

	result := &ReadResult{
		Content:   string(buf[:n]),
		BytesRead: int64(n),
		TotalSize: info.Size(),
		Truncated: info.Size() > int64(n),
	}
	if result.Truncated {
		result.Content += TruncationMarker
	}
	return result, nil
}

// DirEntry is a single capped-listing row.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// ListResult carries a capped directory listing.
type ListResult struct {
	Entries   []DirEntry
	Total     int
	Truncated bool
}

// ListDirCapped lists at most maxEntries of dir, names sorted, directories
// first.
func ListDirCapped(dir string, maxEntries int) (*ListResult, error) {
	if maxEntries <= 0 {
		return nil, runtimeerrors.New(runtimeerrors.KindIO, "entry cap must be positive")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "list %s", dir)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	result := &ListResult{Total: len(entries)}
	for _, entry := range entries {
		if len(result.Entries) >= maxEntries {
			result.Truncated = true
			break
		}
		row := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if info, err := entry.Info(); err == nil {
			row.Size = info.Size()
		}
		result.Entries = append(result.Entries, row)
	}
	return result, nil
}

// SearchMatch is one line hit from a capped content search.
type SearchMatch struct {
	Path string
	Line int
	Text string
}

// SearchResult carries capped content-search hits.
type SearchResult struct {
	Matches      []SearchMatch
	FilesVisited int
	Truncated    bool
}

// SearchLimits bounds a recursive content search.
type SearchLimits struct {
	MaxFiles   int
	MaxResults int
	// MaxLineLen clips matched lines before they reach the model.
	MaxLineLen int
}

// SearchContentCapped walks root recursively, matching query as a literal
// substring in text files. Any breached ceiling sets Truncated; the walk
// never returns an unbounded payload.
func SearchContentCapped(root, query string, limits SearchLimits) (*SearchResult, error) {
	if query == "" {
		return nil, runtimeerrors.New(runtimeerrors.KindIO, "query cannot be empty")
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 1000
	}
	if limits.MaxResults <= 0 {
		limits.MaxResults = 100
	}
	if limits.MaxLineLen <= 0 {
		limits.MaxLineLen = 500
	}

	result := &SearchResult{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if result.FilesVisited >= limits.MaxFiles {
			result.Truncated = true
			return filepath.SkipAll
		}
		result.FilesVisited++
		if searchFile(path, query, limits, result) {
			result.Truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, runtimeerrors.Wrap(runtimeerrors.KindIO, err, "search %s", root)
	}
	return result, nil
}

// searchFile scans one file; reports true when the result cap was hit.
func searchFile(path, query string, limits SearchLimits, result *SearchResult) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(line, query) {
			continue
		}
		if len(line) > limits.MaxLineLen {
			line = line[:limits.MaxLineLen] + "..."
		}
		result.Matches = append(result.Matches, SearchMatch{Path: path, Line: lineNo, Text: line})
		if len(result.Matches) >= limits.MaxResults {
			return true
		}
	}
	return false
}

// skippedDirs are pruned below the search root: dependency caches, build
// output, and version-control metadata make scans pathological.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	".cache":       true,
	".next":        true,
}

// SkippedDir reports whether name is on the traversal skip list.
func SkippedDir(name string) bool {
	return skippedDirs[name]
}

// TruncationNote renders a uniform human-readable suffix for capped output.
func TruncationNote(shown, total int) string {
	if shown >= total {
		return ""
	}
	return fmt.Sprintf(" (showing %d of %d)", shown, total)
}
