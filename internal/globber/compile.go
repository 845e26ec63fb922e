// Package globber compiles glob patterns into matchers and runs bounded
// directory scans with them.
//
// Supported syntax: `*` (any run without a separator), `?` (one
// non-separator character), `**` (any run including separators, with the
// segment form `**/` meaning zero or more whole segments), and recursive
// brace alternation `{a,b}`. Matching is anchored and case-insensitive.
package globber

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Matcher reports whether a slash-separated relative path matches a
// compiled pattern.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string { return m.pattern }

// Match tests a slash-separated relative path.
func (m *Matcher) Match(path string) bool {
	return m.re.MatchString(path)
}

// compiled matchers are cached: agents re-issue the same handful of
// patterns throughout a task.
var matcherCache, _ = lru.New[string, *Matcher](256)

// Compile turns a glob pattern into a Matcher.
func Compile(pattern string) (*Matcher, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return nil, fmt.Errorf("glob pattern cannot be empty")
	}
	if cached, ok := matcherCache.Get(trimmed); ok {
		return cached, nil
	}

	expansions, err := expandBraces(trimmed)
	if err != nil {
		return nil, err
	}

	alternatives := make([]string, 0, len(expansions))
	for _, expansion := range expansions {
		alternatives = append(alternatives, globToRegexp(expansion))
	}

	source := "(?i)^(?:" + strings.Join(alternatives, "|") + ")$"
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
	}

	matcher := &Matcher{pattern: trimmed, re: re}
	matcherCache.Add(trimmed, matcher)
	return matcher, nil
}

// expandBraces expands the first {a,b,c} group and recurses on each branch,
// so nested groups expand fully.
func expandBraces(pattern string) ([]string, error) {
	open := -1
	depth := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			if depth == 0 {
				open = i
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '}' in glob %q", pattern)
			}
			if depth == 0 {
				var expanded []string
				for _, branch := range splitBranches(pattern[open+1 : i]) {
					sub, err := expandBraces(pattern[:open] + branch + pattern[i+1:])
					if err != nil {
						return nil, err
					}
					expanded = append(expanded, sub...)
				}
				return expanded, nil
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '{' in glob %q", pattern)
	}
	return []string{pattern}, nil
}

// splitBranches splits a brace body on top-level commas only.
func splitBranches(body string) []string {
	var branches []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				branches = append(branches, body[start:i])
				start = i + 1
			}
		}
	}
	branches = append(branches, body[start:])
	return branches
}

// globToRegexp rewrites a single brace-free glob into regexp source.
func globToRegexp(glob string) string {
	var out strings.Builder
	i := 0
	for i < len(glob) {
		c := glob[i]
		switch c {
		case '*':
			if strings.HasPrefix(glob[i:], "**/") {
				// Zero or more whole path segments.
				out.WriteString(`(?:[^/]*/)*`)
				i += 3
				continue
			}
			if strings.HasPrefix(glob[i:], "**") {
				// Any run, separators included.
				out.WriteString(`.*`)
				i += 2
				continue
			}
			out.WriteString(`[^/]*`)
			i++
		case '?':
			out.WriteString(`[^/]`)
			i++
		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return out.String()
}
