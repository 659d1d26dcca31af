package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local is the filesystem backend used in production. It is stateless; all
// methods take absolute paths.
type Local struct{}

// NewLocal returns the local filesystem backend
func NewLocal() *Local {
	return &Local{}
}

func toInfo(path string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Mode:    uint32(info.Mode().Perm()),
	}
}

// List returns the files under root. Unreadable subdirectories abort the
// listing; a sweep over a tree it cannot fully see must not run.
func (l *Local) List(ctx context.Context, root string, recursive bool) ([]FileInfo, error) {
	root = filepath.FromSlash(root)
	var files []FileInfo

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
			}
			files = append(files, toInfo(filepath.Join(root, e.Name()), info))
		}
		return files, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, toInfo(p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	return files, nil
}

// ListDirs returns the immediate subdirectories of root
func (l *Local) ListDirs(ctx context.Context, root string) ([]FileInfo, error) {
	root = filepath.FromSlash(root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	var dirs []FileInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		dirs = append(dirs, toInfo(filepath.Join(root, e.Name()), info))
	}
	return dirs, nil
}

// Open opens a file for reading
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Copy copies src to dst, creating parents and carrying over the source
// modification time so later quick comparisons can use it.
func (l *Local) Copy(ctx context.Context, src, dst string) (int64, error) {
	src, dst = filepath.FromSlash(src), filepath.FromSlash(dst)

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}

	written, err := io.Copy(out, contextReader{ctx: ctx, r: in})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("failed to copy file: %w", err)
	}
	if written != srcInfo.Size() {
		return written, fmt.Errorf("incomplete copy: expected %d bytes, wrote %d", srcInfo.Size(), written)
	}

	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return written, fmt.Errorf("failed to set modification time: %w", err)
	}
	return written, nil
}

// Remove deletes a single file. Directories are refused; reclaiming space
// never removes more than the one path that was validated.
func (l *Local) Remove(ctx context.Context, path string) error {
	path = filepath.FromSlash(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to remove directory %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// RemoveEmptyDirs walks the tree under root deepest-first and removes any
// directory that is empty by the time it is visited. Errors on individual
// directories (still non-empty, permissions) are ignored.
func (l *Local) RemoveEmptyDirs(ctx context.Context, root string) (int, error) {
	root = filepath.FromSlash(root)

	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable subtrees, best-effort
		}
		if d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	// deepest first so emptied parents become removable in the same pass
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) >
			strings.Count(dirs[j], string(filepath.Separator))
	})

	removed := 0
	for _, d := range dirs {
		if os.Remove(d) == nil {
			removed++
		}
	}
	return removed, nil
}

// Stat returns metadata for path
func (l *Local) Stat(ctx context.Context, path string) (FileInfo, error) {
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return toInfo(path, info), nil
}

// Exists reports whether path exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.FromSlash(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.FromSlash(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// contextReader aborts long copies when the context is cancelled
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
	}
	return c.r.Read(p)
}
