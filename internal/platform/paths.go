// Package platform handles the platform-specific corners of path handling.
// Record locations are stored slash-style and case-preserved; everything
// here is about turning user-supplied paths into that form.
package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

// Absolutize resolves a user-supplied path to an absolute slash-style path.
// UNC share prefixes are preserved; relative paths resolve against the
// working directory.
func Absolutize(path string) (string, error) {
	if IsUNCPath(path) {
		s := strings.ReplaceAll(path, `\`, "/")
		return "//" + strings.TrimLeft(filepath.ToSlash(filepath.Clean(s)), "/"), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" && !IsUNCPath(path) {
		for _, char := range []string{"<", ">", "\"", "|", "?", "*"} {
			if strings.Contains(path, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
