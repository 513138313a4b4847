package walker

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func toSlash(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}

func TestFlatten(t *testing.T) {
	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{
		"a.txt":           "hello",
		"b/c.txt":         "",
		"b/d/e.txt":       "deep",
		".hidden":         "hidden",
		"dir1/.gitignore": "ignored",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755))

	files, err := Flatten(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		".hidden",
		"a.txt",
		"b/c.txt",
		"b/d/e.txt",
		"dir1/.gitignore",
	}, toSlash(files))
}

func TestFlattenIsStable(t *testing.T) {
	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{
		"z.bin":     "1",
		"m/n/o.bin": "2",
		"m/a.bin":   "3",
		"b.bin":     "4",
	})

	first, err := Flatten(tmpDir)
	require.NoError(t, err)
	second, err := Flatten(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFlattenEmptyTree(t *testing.T) {
	files, err := Flatten(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFlattenMissingRoot(t *testing.T) {
	_, err := Flatten(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnumerate))
}

func TestFlattenUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{
		"ok.txt":        "ok",
		"locked/in.txt": "secret",
	})
	locked := filepath.Join(tmpDir, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	files, err := Flatten(tmpDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnumerate))
	assert.Nil(t, files)
}

func TestFlattenFollowsDirectorySymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	tmpDir := t.TempDir()
	outside := t.TempDir()
	createTree(t, tmpDir, map[string]string{"a.txt": "a"})
	createTree(t, outside, map[string]string{"x.txt": "x"})
	require.NoError(t, os.Symlink(outside, filepath.Join(tmpDir, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "missing"), filepath.Join(tmpDir, "dangling")))

	files, err := Flatten(tmpDir)
	require.NoError(t, err)

	got := toSlash(files)
	sort.Strings(got)
	assert.Equal(t, []string{"a.txt", "dangling", "linked/x.txt"}, got)
}

func TestFlattenSymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{"sub/a.txt": "a"})
	require.NoError(t, os.Symlink(tmpDir, filepath.Join(tmpDir, "sub", "loop")))

	_, err := Flatten(tmpDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnumerate))
}

func TestWalker(t *testing.T) {
	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{
		"file1.txt":             "content1",
		"dir1/file3.txt":        "content3",
		"dir1/subdir/file5.txt": "content5",
		"dir2/file6.txt":        "content6",
		".hidden":               "hidden",
		"dir1/.gitignore":       "ignored",
		"cache/tmp.bin":         "tmp",
	})

	tests := []struct {
		name      string
		excludes  []string
		wantFiles []string
	}{
		{
			name:     "no excludes",
			excludes: nil,
			wantFiles: []string{
				".hidden",
				"cache/tmp.bin",
				"dir1/.gitignore",
				"dir1/file3.txt",
				"dir1/subdir/file5.txt",
				"dir2/file6.txt",
				"file1.txt",
			},
		},
		{
			name:     "exclude hidden files",
			excludes: []string{".*", "**/.*"},
			wantFiles: []string{
				"cache/tmp.bin",
				"dir1/file3.txt",
				"dir1/subdir/file5.txt",
				"dir2/file6.txt",
				"file1.txt",
			},
		},
		{
			name:     "exclude directory",
			excludes: []string{"dir1/"},
			wantFiles: []string{
				".hidden",
				"cache/tmp.bin",
				"dir2/file6.txt",
				"file1.txt",
			},
		},
		{
			name:     "exclude by extension",
			excludes: []string{"**/*.txt"},
			wantFiles: []string{
				".hidden",
				"cache/tmp.bin",
				"dir1/.gitignore",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWalker(tmpDir, tt.excludes)
			require.NoError(t, err)

			files, err := w.Walk()
			require.NoError(t, err)

			got := make([]string, len(files))
			for i, f := range files {
				got[i] = filepath.ToSlash(f.RelPath)
				assert.Equal(t, filepath.Join(w.Root(), f.RelPath), f.Path)
			}
			assert.Equal(t, tt.wantFiles, got)
		})
	}
}

func TestWalkerSizes(t *testing.T) {
	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{"a.txt": "hello", "b/c.txt": ""})

	w, err := NewWalker(tmpDir, nil)
	require.NoError(t, err)
	files, err := w.Walk()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, int64(5), files[0].Size)
	assert.Equal(t, int64(0), files[1].Size)
}

func TestNewWalkerErrors(t *testing.T) {
	tmpDir := t.TempDir()
	createTree(t, tmpDir, map[string]string{"file.txt": "x"})

	_, err := NewWalker(filepath.Join(tmpDir, "missing"), nil)
	assert.Error(t, err)

	_, err = NewWalker(filepath.Join(tmpDir, "file.txt"), nil)
	assert.Error(t, err)

	_, err = NewWalker(tmpDir, []string{"[unclosed"})
	assert.Error(t, err)
}
