package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{5, "5 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New("strict-fanout-copy", "warn", &buf)

	log.Info("hidden")
	log.Warn("shown", "file", "a.txt")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "app=strict-fanout-copy")
	assert.Contains(t, out, "file=a.txt")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{
		RunID:        "abc",
		Files:        2,
		Destinations: 2,
		BytesCopied:  5,
		Verified:     2,
		Inconsistent: 1,
		Duration:     1500 * time.Microsecond,
	})

	out := buf.String()
	assert.Contains(t, out, "=== Summary ===")
	assert.Contains(t, out, "Copied: 2 files to 2 destinations (5 B per destination)")
	assert.Contains(t, out, "Inconsistent: 1 files")
	assert.Contains(t, out, "Duration: 2ms")
}
