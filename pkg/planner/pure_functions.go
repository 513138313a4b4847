package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/walker"
)

// Plan joins every relative path with the source root and each destination
// root, keeping the order of files and of destinations.
func Plan(sourceRoot string, destRoots []string, files []string) []Item {
	items := make([]Item, 0, len(files))
	for _, rel := range files {
		items = append(items, newItem(sourceRoot, destRoots, rel, 0))
	}
	return items
}

// PlanWalked is Plan for walker output, keeping file sizes.
func PlanWalked(sourceRoot string, destRoots []string, files []walker.FileInfo) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		items = append(items, newItem(sourceRoot, destRoots, f.RelPath, f.Size))
	}
	return items
}

func newItem(sourceRoot string, destRoots []string, rel string, size int64) Item {
	dests := make([]string, len(destRoots))
	for i, root := range destRoots {
		dests[i] = filepath.Join(root, rel)
	}
	return Item{
		RelPath:      rel,
		Source:       filepath.Join(sourceRoot, rel),
		Destinations: dests,
		Size:         size,
	}
}

// RelPaths returns the relative path of every item.
func RelPaths(items []Item) []string {
	paths := make([]string, len(items))
	for i, item := range items {
		paths[i] = item.RelPath
	}
	return paths
}

// TotalSize sums the sizes of all items.
func TotalSize(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Size
	}
	return total
}

// ResolveRoots makes every root absolute and cleans it.
func ResolveRoots(source string, dests []string) (string, []string, error) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return "", nil, fmt.Errorf("resolve source %s: %w", source, err)
	}

	absDests := make([]string, len(dests))
	for i, d := range dests {
		abs, err := filepath.Abs(d)
		if err != nil {
			return "", nil, fmt.Errorf("resolve destination %s: %w", d, err)
		}
		absDests[i] = abs
	}

	return absSource, absDests, nil
}

// ValidateRoots rejects root combinations that would lose or re-copy data.
// Roots are expected to be absolute, as returned by ResolveRoots.
func ValidateRoots(source string, dests []string) error {
	if len(dests) == 0 {
		return fmt.Errorf("at least one destination is required")
	}

	seen := make(map[string]bool, len(dests))
	for _, d := range dests {
		if d == source {
			return fmt.Errorf("destination %s is the source", d)
		}
		if isWithin(source, d) {
			return fmt.Errorf("destination %s is inside the source %s", d, source)
		}
		if isWithin(d, source) {
			return fmt.Errorf("source %s is inside the destination %s", source, d)
		}
		if seen[d] {
			return fmt.Errorf("destination %s is listed more than once", d)
		}
		seen[d] = true
	}
	return nil
}

// isWithin reports whether path lies strictly below root.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
