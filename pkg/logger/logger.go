package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	PhaseCopy   = "copy"
	PhaseVerify = "verify"

	ActionCopied    = "copied"
	ActionVerified  = "verified"
	ActionMismatch  = "mismatch"
	ActionWouldCopy = "would copy"
)

// Logger receives per-phase events from the executor.
type Logger interface {
	PhaseStart(phase string, totalItems int)
	ItemProcessed(phase string, item string, action string)
	PhaseComplete(phase string, processedItems int)
	Error(phase string, item string, err error)
}

// VerboseLogger writes every event to a structured logger.
type VerboseLogger struct {
	Logger *slog.Logger
}

func (l *VerboseLogger) log() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *VerboseLogger) PhaseStart(phase string, totalItems int) {
	l.log().Info("phase started", "phase", phase, "files", totalItems)
}

func (l *VerboseLogger) ItemProcessed(phase string, item string, action string) {
	if action == ActionMismatch {
		l.log().Warn("destination differs from source", "phase", phase, "file", item)
		return
	}
	l.log().Debug(action, "phase", phase, "file", item)
}

func (l *VerboseLogger) PhaseComplete(phase string, processedItems int) {
	l.log().Info("phase complete", "phase", phase, "files", processedItems)
}

func (l *VerboseLogger) Error(phase string, item string, err error) {
	l.log().Error("file failed", "phase", phase, "file", item, "error", err)
}

type NullLogger struct{}

func (l *NullLogger) PhaseStart(phase string, totalItems int) {}

func (l *NullLogger) ItemProcessed(phase string, item string, action string) {}

func (l *NullLogger) PhaseComplete(phase string, processedItems int) {}

func (l *NullLogger) Error(phase string, item string, err error) {}

// QuietLogger prints only mismatches and failures. Output is colored when Out
// (stderr by default) is a terminal and NO_COLOR is unset.
type QuietLogger struct {
	Out io.Writer
}

func (l *QuietLogger) out() io.Writer {
	if l.Out == nil {
		return os.Stderr
	}
	return l.Out
}

func (l *QuietLogger) paint(w io.Writer, fg color.Attribute) *color.Color {
	c := color.New(color.Bold, fg)
	if isTerminal(w) && os.Getenv("NO_COLOR") == "" {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *QuietLogger) PhaseStart(phase string, totalItems int) {}

func (l *QuietLogger) ItemProcessed(phase string, item string, action string) {
	if action == ActionMismatch {
		w := l.out()
		l.paint(w, color.FgYellow).Fprintf(w, "%s: %s\n", action, item)
	}
}

func (l *QuietLogger) PhaseComplete(phase string, processedItems int) {}

func (l *QuietLogger) Error(phase string, item string, err error) {
	w := l.out()
	l.paint(w, color.FgRed).Fprintf(w, "ERROR: %s %s: %v\n", phase, item, err)
}
