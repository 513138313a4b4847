package executor

import (
	"fmt"
	"sync"
)

// recordingLogger is a logger.Logger that keeps every event for assertions
type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingLogger) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) PhaseStart(phase string, totalItems int) {
	l.add("start %s %d", phase, totalItems)
}

func (l *recordingLogger) ItemProcessed(phase string, item string, action string) {
	l.add("%s %s %s", phase, action, item)
}

func (l *recordingLogger) PhaseComplete(phase string, processedItems int) {
	l.add("complete %s %d", phase, processedItems)
}

func (l *recordingLogger) Error(phase string, item string, err error) {
	l.add("error %s %s", phase, item)
}

func (l *recordingLogger) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}
