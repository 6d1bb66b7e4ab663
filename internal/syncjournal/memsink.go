package syncjournal

import "sync"

// MemSink is an in-memory RowSink for tests and for any deployment that has
// not wired a real warehouse connection; it never errors.
type MemSink struct {
	mu   sync.Mutex
	rows []Row
}

// NewMemSink returns an empty MemSink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

// InsertRow appends row to the in-memory log.
func (m *MemSink) InsertRow(row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns a copy of every row inserted so far.
func (m *MemSink) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
