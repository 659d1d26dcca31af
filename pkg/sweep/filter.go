package sweep

import (
	"path"
	"strings"
)

// matchName reports whether a file name matches a filter pattern. Patterns
// are globs (*.dat, *.tmp); a pattern without glob metacharacters matches as
// a case-insensitive substring of the name, which is how acquisition tooling
// filters have always been written.
func matchName(name, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(name))
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// keepFile applies include filters (empty = keep everything) and then
// exclude filters to a file name.
func keepFile(name string, include, exclude []string) bool {
	if len(include) > 0 {
		found := false
		for _, p := range include {
			if matchName(name, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, p := range exclude {
		if matchName(name, p) {
			return false
		}
	}
	return true
}
