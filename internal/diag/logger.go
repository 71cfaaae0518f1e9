// Package diag is the verbosity-gated diagnostic logger spec §6 calls for
// ("Diagnostic log lines for paging in/out, randomization re-seed, and
// batch composition; verbosity-gated") and spec §7's capped per-kind
// warning log during construction. It follows the teacher's log.go shape
// — one CSV row per event, written to a daily-named file built from a
// strftime pattern — but threaded through an explicit Logger value
// instead of package-level globals, since this library's single-threaded
// cooperative model (spec §5) has no use for the teacher's global
// verbosity switch and every caller already holds a *Logger.
package diag

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Level is the verbosity threshold an event is gated on. Higher is more
// verbose.
type Level int

const (
	LevelSilent Level = iota
	LevelInfo
	LevelVerbose
	LevelDebug
)

// warnCap bounds how many times each warning kind is logged during
// construction (spec §7 kind 4: "capped to the first 5 occurrences of
// each kind").
const warnCap = 5

// Logger writes one CSV row per diagnostic event to a file whose name is
// built from a strftime pattern, the same daily-naming idea as the
// teacher's log_init/daily_names. The pattern is expanded once, when the
// logger opens; the file is not switched when the date changes. now is
// overridable for deterministic tests.
type Logger struct {
	verbosity Level
	w         *csv.Writer
	f         *os.File
	now       func() time.Time

	warnCounts map[string]int
}

// NewLogger opens (creating if needed) the log file named by expanding
// namePattern against the current time via strftime, and writes a CSV
// header if the file is new.
func NewLogger(namePattern string, verbosity Level) (*Logger, error) {
	return newLogger(namePattern, verbosity, time.Now)
}

func newLogger(namePattern string, verbosity Level, now func() time.Time) (*Logger, error) {
	name, err := strftime.Format(namePattern, now())
	if err != nil {
		return nil, fmt.Errorf("diag: expanding log file pattern %q: %w", namePattern, err)
	}

	info, statErr := os.Stat(name)
	isNew := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diag: opening log file %q: %w", name, err)
	}

	w := csv.NewWriter(f)
	if isNew {
		_ = w.Write([]string{"timestamp", "level", "kind", "detail"})
	}

	return &Logger{
		verbosity:  verbosity,
		w:          w,
		f:          f,
		now:        now,
		warnCounts: make(map[string]int),
	}, nil
}

// SetVerbosity implements spec §6's set_verbosity(level) operation.
func (l *Logger) SetVerbosity(level Level) {
	if l == nil {
		return
	}
	l.verbosity = level
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.w.Flush()
	return l.f.Close()
}

// Event logs one diagnostic row if level is within the current
// verbosity. A nil *Logger is a valid no-op receiver so callers never
// need to nil-check before logging.
func (l *Logger) Event(level Level, kind, detail string) {
	if l == nil || level > l.verbosity {
		return
	}
	_ = l.w.Write([]string{l.now().Format(time.RFC3339Nano), kindLabel(level), kind, detail})
	l.w.Flush()
}

// WarnCapped logs a per-utterance construction warning (spec §7 kind 4),
// suppressing all but the first warnCap occurrences of each kind so a
// corpus with many similarly-broken utterances does not flood the log.
func (l *Logger) WarnCapped(kind, detail string) {
	if l == nil {
		return
	}
	l.warnCounts[kind]++
	if l.warnCounts[kind] > warnCap {
		return
	}
	l.Event(LevelInfo, kind, detail)
}

func kindLabel(level Level) string {
	switch level {
	case LevelSilent:
		return "silent"
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}
