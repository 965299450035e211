// Package recent keeps the most-recent-first log of submitted queries.
package recent

import (
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/pders01/hubsearch/internal/debuglog"
)

// DefaultMax is the number of queries kept when no cap is configured.
const DefaultMax = 10

// Backend is the single durable slot the log is serialized into.
// storage.Store implements it with bbolt.
type Backend interface {
	LoadRecent() ([]byte, error)
	SaveRecent(data []byte) error
}

// Log is a deduplicated, capped list of past queries. Persistence is best
// effort: read and write failures are logged and never reach the caller.
type Log struct {
	mu      sync.Mutex
	backend Backend
	max     int
	entries []string
	log     *debuglog.FieldLogger
}

// New loads the log from backend. A max <= 0 means DefaultMax.
func New(backend Backend, max int) *Log {
	if max <= 0 {
		max = DefaultMax
	}
	l := &Log{
		backend: backend,
		max:     max,
		log:     debuglog.WithFields(map[string]interface{}{"component": "recent"}),
	}
	if entries, ok := l.load(); ok {
		l.entries = entries
	}
	return l
}

// load reads the slot. ok is false when the read failed or the slot is
// corrupt, in which case the caller keeps its in-memory copy.
func (l *Log) load() ([]string, bool) {
	data, err := l.backend.LoadRecent()
	if err != nil {
		l.log.Warnf("reading recent searches: %v", err)
		return nil, false
	}
	if len(data) == 0 {
		return []string{}, true
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		l.log.Warnf("recent searches slot is corrupt, ignoring it: %v", err)
		return nil, false
	}
	if len(entries) > l.max {
		entries = entries[:l.max]
	}
	return entries, true
}

// Record moves query to the front of the log, removing an equal older entry
// and dropping the oldest entry beyond the cap. Blank queries are ignored.
func (l *Log) Record(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.entries
	if fresh, ok := l.load(); ok {
		current = fresh
	}

	next := make([]string, 0, l.max)
	next = append(next, query)
	for _, e := range current {
		if e == query {
			continue
		}
		if len(next) == l.max {
			break
		}
		next = append(next, e)
	}
	l.entries = next
	l.persist()
}

// Entries returns a copy of the log, most recent first.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = []string{}
	l.persist()
}

// Max is the cap on the number of entries.
func (l *Log) Max() int { return l.max }

func (l *Log) persist() {
	data, err := json.Marshal(l.entries)
	if err != nil {
		l.log.Warnf("encoding recent searches: %v", err)
		return
	}
	if err := l.backend.SaveRecent(data); err != nil {
		l.log.Warnf("writing recent searches: %v", err)
	}
}

// MemoryBackend keeps the slot in memory. Used in tests and when no
// database is available.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) LoadRecent() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) SaveRecent(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// String renders the raw slot, handy when debugging.
func (m *MemoryBackend) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data)
}
