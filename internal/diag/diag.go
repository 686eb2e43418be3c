// Package diag records the timestamped trace of a single pipeline run.
// The trace is attached verbatim to every result, successful or not.
package diag

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// timeLayout matches the clock format of the trace, e.g. "3:04:05 PM".
const timeLayout = "3:04:05 PM"

// Entry is one line of the trace.
type Entry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Snapshot is an immutable copy of a trace.
type Snapshot []Entry

// String renders the snapshot as a block of "time\ntext" paragraphs.
func (s Snapshot) String() string {
	var b strings.Builder
	for _, e := range s {
		b.WriteString(e.At.Format(timeLayout))
		b.WriteString("\n")
		b.WriteString(e.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Log is an append-only trace shared by the goroutines of one run.
// Once frozen, further appends are dropped.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	frozen  bool

	now    func() time.Time
	mirror func(string)
}

// New creates an empty log. If mirror is non-nil every appended line is
// also passed to it (typically a debug logger).
func New(mirror func(string)) *Log {
	return &Log{now: time.Now, mirror: mirror}
}

// Addf appends a formatted line.
func (l *Log) Addf(format string, args ...any) {
	if l == nil {
		return
	}
	l.Add(fmt.Sprintf(format, args...))
}

// Add appends a line. A nil Log discards it.
func (l *Log) Add(text string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.frozen {
		l.mu.Unlock()
		return
	}
	l.entries = append(l.entries, Entry{At: l.now(), Text: text})
	l.mu.Unlock()

	if l.mirror != nil {
		l.mirror(text)
	}
}

// Snapshot returns a copy of the entries recorded so far.
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

// Freeze stops the log from accepting entries and returns the final trace.
// Calling Freeze again returns the same trace.
func (l *Log) Freeze() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = true
	return l.copyLocked()
}

// Frozen reports whether Freeze has been called.
func (l *Log) Frozen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frozen
}

func (l *Log) copyLocked() Snapshot {
	out := make(Snapshot, len(l.entries))
	copy(out, l.entries)
	return out
}
