/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-governor/log"
)

// RecordedEntry is a logged entry captured by Recorder.
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField returns the first field with the given key (own fields go before derived ones).
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

// StringField returns the value of the string field with the given key.
func (re *RecordedEntry) StringField(key string) (string, bool) {
	f, ok := re.FindField(key)
	if !ok || f.Type != logf.FieldTypeBytesToString {
		return "", false
	}
	return string(f.Bytes), true
}

// IntField returns the raw integer value of the field with the given key.
func (re *RecordedEntry) IntField(key string) (int64, bool) {
	f, ok := re.FindField(key)
	if !ok {
		return 0, false
	}
	return f.Int, true
}

// entryStore is shared by a Recorder and all loggers derived from it via With.
type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter passes the entry by value.
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.Fields...)
	fields = append(fields, e.DerivedFields...)

	s.mu.Lock()
	s.entries = append(s.entries, RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     fields,
		Level:      levelFromLogf(e.Level),
		Time:       e.Time,
		Text:       e.Text,
	})
	s.mu.Unlock()
}

func (s *entryStore) filter(fn func(entry RecordedEntry) bool, limit int) []RecordedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []RecordedEntry
	for _, entry := range s.entries {
		if fn(entry) {
			found = append(found, entry)
			if limit > 0 && len(found) == limit {
				break
			}
		}
	}
	return found
}

// Recorder is a log.FieldLogger that keeps all entries (debug level included) in memory.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder returns an initialized Recorder.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{LogfAdapter: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store: store}
}

// With returns a logger with additional fields that records into the same Recorder.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.With(fs...).(*log.LogfAdapter), store: r.store}
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.store.filter(func(RecordedEntry) bool { return true }, 0)
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(entry RecordedEntry) bool { return entry.Text == msg })
}

// FindEntryByFilter returns the first entry accepted by the filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	if found := r.store.filter(filter, 1); len(found) != 0 {
		return found[0], true
	}
	return RecordedEntry{}, false
}

// FindAllEntriesByFilter returns all entries accepted by the filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	return r.store.filter(filter, 0)
}

// CountEntriesByLevel returns the number of recorded entries at the given level.
func (r *Recorder) CountEntriesByLevel(level log.Level) int {
	return len(r.store.filter(func(entry RecordedEntry) bool { return entry.Level == level }, 0))
}

// CountEntries returns the number of recorded entries with the given message.
func (r *Recorder) CountEntries(msg string) int {
	return len(r.store.filter(func(entry RecordedEntry) bool { return entry.Text == msg }, 0))
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

func levelFromLogf(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
