package planner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/walker"
)

func TestPlan(t *testing.T) {
	src := filepath.FromSlash("/media/card")
	dests := []string{filepath.FromSlash("/backup/a"), filepath.FromSlash("/backup/b")}
	files := []string{"a.txt", filepath.FromSlash("b/c.txt")}

	items := Plan(src, dests, files)

	want := []Item{
		{
			RelPath: "a.txt",
			Source:  filepath.FromSlash("/media/card/a.txt"),
			Destinations: []string{
				filepath.FromSlash("/backup/a/a.txt"),
				filepath.FromSlash("/backup/b/a.txt"),
			},
		},
		{
			RelPath: filepath.FromSlash("b/c.txt"),
			Source:  filepath.FromSlash("/media/card/b/c.txt"),
			Destinations: []string{
				filepath.FromSlash("/backup/a/b/c.txt"),
				filepath.FromSlash("/backup/b/b/c.txt"),
			},
		},
	}
	assert.Equal(t, want, items)
	assert.Equal(t, []string{"a.txt", filepath.FromSlash("b/c.txt")}, RelPaths(items))
}

func TestPlanWalked(t *testing.T) {
	files := []walker.FileInfo{
		{RelPath: "a.txt", Size: 5},
		{RelPath: "b.txt", Size: 7},
	}

	items := PlanWalked("/src", []string{"/dst"}, files)

	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[1].Size)
	assert.Equal(t, int64(12), TotalSize(items))
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, Plan("/src", []string{"/dst"}, nil))
}

func TestValidateRoots(t *testing.T) {
	abs := func(p string) string {
		a, err := filepath.Abs(filepath.FromSlash(p))
		require.NoError(t, err)
		return a
	}

	tests := []struct {
		name    string
		source  string
		dests   []string
		wantErr bool
	}{
		{
			name:   "two independent destinations",
			source: abs("/media/card"),
			dests:  []string{abs("/backup/a"), abs("/backup/b")},
		},
		{
			name:   "sibling with shared prefix",
			source: abs("/media/card"),
			dests:  []string{abs("/media/card-copy")},
		},
		{
			name:    "no destinations",
			source:  abs("/media/card"),
			wantErr: true,
		},
		{
			name:    "destination equals source",
			source:  abs("/media/card"),
			dests:   []string{abs("/media/card")},
			wantErr: true,
		},
		{
			name:    "destination inside source",
			source:  abs("/media/card"),
			dests:   []string{abs("/media/card/backup")},
			wantErr: true,
		},
		{
			name:    "source inside destination",
			source:  abs("/backup/card"),
			dests:   []string{abs("/backup")},
			wantErr: true,
		},
		{
			name:    "duplicate destination",
			source:  abs("/media/card"),
			dests:   []string{abs("/backup/a"), abs("/backup/a")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoots(tt.source, tt.dests)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveRoots(t *testing.T) {
	src, dests, err := ResolveRoots("relative/src", []string{"relative/dst"})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(src))
	require.Len(t, dests, 1)
	assert.True(t, filepath.IsAbs(dests[0]))
}
