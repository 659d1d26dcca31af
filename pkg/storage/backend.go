package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo is the metadata the orchestrators need about one path
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	Mode    uint32
}

// Backend abstracts the filesystem the orchestrators touch, so copy and
// clear logic can be exercised against fault-injecting implementations in
// tests. Paths are absolute; normalization to record form is the caller's
// concern.
type Backend interface {
	// List returns the files (not directories) under root. Recursive
	// descends the whole tree; otherwise only direct children are returned.
	List(ctx context.Context, root string, recursive bool) ([]FileInfo, error)

	// ListDirs returns the immediate subdirectories of root
	ListDirs(ctx context.Context, root string) ([]FileInfo, error)

	// Open opens a file for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Copy copies src to dst, creating parent directories and preserving
	// the source modification time. Returns bytes written.
	Copy(ctx context.Context, src, dst string) (int64, error)

	// Remove deletes a single file, never a directory
	Remove(ctx context.Context, path string) error

	// RemoveEmptyDirs removes now-empty directories under root, deepest
	// first, best-effort. Non-empty directories are left alone. The root
	// itself is kept. Returns the number of directories removed.
	RemoveEmptyDirs(ctx context.Context, root string) (int, error)

	// Stat returns metadata for path
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Exists reports whether path exists
	Exists(ctx context.Context, path string) (bool, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error
}
