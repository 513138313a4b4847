package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// New creates a structured logger with text output.
// level is one of "debug", "info", "warn", "error" (default: "info").
func New(app string, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	return slog.New(handler).With(
		slog.String("app", app),
		slog.Int("pid", os.Getpid()),
	)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Summary holds the figures printed at the end of a run
type Summary struct {
	RunID        string
	Files        int
	Destinations int
	BytesCopied  int64
	Verified     int
	Inconsistent int
	Duration     time.Duration
	Failed       bool
}

// PrintSummary prints a summary of the run
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	if s.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Copied: %d files to %d destinations (%s per destination)\n",
		s.Files, s.Destinations, FormatBytes(s.BytesCopied))
	if s.Verified > 0 {
		fmt.Fprintf(w, "Verified: %d files\n", s.Verified)
	}
	if s.Inconsistent > 0 {
		fmt.Fprintf(w, "Inconsistent: %d files\n", s.Inconsistent)
	}
	if s.Failed {
		fmt.Fprintln(w, "Status: FAILED")
	}
	fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(time.Millisecond))
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
