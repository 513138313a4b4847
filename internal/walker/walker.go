package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrEnumerate is wrapped by every error that aborts a tree enumeration.
var ErrEnumerate = errors.New("enumerate directory tree")

// FileInfo represents a file found under a tree root
type FileInfo struct {
	Path    string // Absolute path
	RelPath string // Relative path from root
	Size    int64
}

// Walker walks a local tree with exclude pattern support
type Walker struct {
	root     string
	excludes []string
}

// NewWalker creates a new file walker
func NewWalker(root string, excludes []string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	// Validate root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	return &Walker{
		root:     absRoot,
		excludes: excludes,
	}, nil
}

// Root returns the absolute root of the walker.
func (w *Walker) Root() string {
	return w.root
}

// Walk walks the tree and returns the files not matched by an exclude pattern.
// Files are returned in traversal order.
func (w *Walker) Walk() ([]FileInfo, error) {
	var files []FileInfo

	err := walk(w.root, func(path, relPath string, isDir bool) (bool, error) {
		relPathForward := filepath.ToSlash(relPath)
		if isDir {
			return w.isExcludedDir(relPathForward), nil
		}
		if w.isExcluded(relPathForward) {
			return false, nil
		}

		var size int64
		// Dangling links and special files are still listed
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    size,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Flatten returns every file under root as a path relative to root.
//
// Directories, including symlinks that resolve to directories, are descended
// in lexical order. Everything else is reported as a file. If any directory
// cannot be read the enumeration fails and no list is returned.
func Flatten(root string) ([]string, error) {
	var files []string

	err := walk(root, func(_, relPath string, isDir bool) (bool, error) {
		if !isDir {
			files = append(files, relPath)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// visitFunc is called for every entry below the root. Returning skip=true for a
// directory prevents descending into it.
type visitFunc func(path, relPath string, isDir bool) (skip bool, err error)

func walk(root string, visit visitFunc) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEnumerate, root, err)
	}
	active := map[string]bool{realRoot: true}
	return walkDir(root, root, active, visit)
}

func walkDir(root, dir string, active map[string]bool, visit visitFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrEnumerate, dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("%w: get relative path: %w", ErrEnumerate, err)
		}

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				isDir = true
			}
		}

		skip, err := visit(path, relPath, isDir)
		if err != nil {
			return err
		}
		if !isDir || skip {
			continue
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("%w: resolve %s: %w", ErrEnumerate, path, err)
		}
		if active[realPath] {
			return fmt.Errorf("%w: symlink cycle at %s", ErrEnumerate, path)
		}

		active[realPath] = true
		err = walkDir(root, path, active, visit)
		delete(active, realPath)
		if err != nil {
			return err
		}
	}

	return nil
}

// isExcluded checks if a path matches any exclude pattern
func (w *Walker) isExcluded(path string) bool {
	for _, pattern := range w.excludes {
		// Directory patterns are handled while descending
		if strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// isExcludedDir checks if a directory matches a pattern ending with /
func (w *Walker) isExcludedDir(path string) bool {
	for _, pattern := range w.excludes {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), path); matched {
			return true
		}
	}
	return false
}
