package globber

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mesutfelat/cowork-oss-sub004/internal/sandbox"
)

// Scan ceilings are scaled from the requested result count but clamped to
// fixed floors and ceilings, so a large request cannot turn into an
// unbounded walk and a tiny request still sees a useful slice of the tree.
const (
	minFilesScanned = 1000
	maxFilesScanned = 20000
	minDirsScanned  = 100
	maxDirsScanned  = 2000
	minDepth        = 8
	maxDepth        = 32
)

// Match is one scan hit.
type Match struct {
	// Path is relative to the scan root, slash-separated.
	Path    string
	ModTime time.Time
	Size    int64
}

// ScanResult carries bounded-scan hits plus ceiling metadata.
type ScanResult struct {
	Matches      []Match
	FilesScanned int
	DirsScanned  int
	Truncated    bool
}

type ceilings struct {
	files int
	dirs  int
	depth int
}

func ceilingsFor(maxResults int) ceilings {
	c := ceilings{
		files: maxResults * 100,
		dirs:  maxResults * 10,
		depth: maxResults,
	}
	c.files = clamp(c.files, minFilesScanned, maxFilesScanned)
	c.dirs = clamp(c.dirs, minDirsScanned, maxDirsScanned)
	c.depth = clamp(c.depth, minDepth, maxDepth)
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Scan walks root recursively, collecting files whose root-relative path
// matches the pattern. Exceeding any ceiling sets Truncated rather than
// failing; matches come back newest-first and capped at maxResults.
func Scan(root, pattern string, maxResults int) (*ScanResult, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	matcher, err := Compile(pattern)
	if err != nil {
		return nil, err
	}

	limits := ceilingsFor(maxResults)
	result := &ScanResult{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if sandbox.SkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 > limits.depth {
				result.Truncated = true
				return filepath.SkipDir
			}
			result.DirsScanned++
			if result.DirsScanned > limits.dirs {
				result.Truncated = true
				return filepath.SkipAll
			}
			return nil
		}

		result.FilesScanned++
		if result.FilesScanned > limits.files {
			result.Truncated = true
			return filepath.SkipAll
		}
		if !matcher.Match(rel) {
			return nil
		}
		match := Match{Path: rel}
		if info, infoErr := d.Info(); infoErr == nil {
			match.ModTime = info.ModTime()
			match.Size = info.Size()
		}
		result.Matches = append(result.Matches, match)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].ModTime.After(result.Matches[j].ModTime)
	})
	if len(result.Matches) > maxResults {
		result.Matches = result.Matches[:maxResults]
		result.Truncated = true
	}
	return result, nil
}
