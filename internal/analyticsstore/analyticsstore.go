// Package analyticsstore holds the narrow AnalyticsStore contract the
// reassembly engine indexes completed photos through, plus an in-memory
// implementation for tests and single-node deployments.
//
// No columnar-store SDK is present anywhere in the pack (object storage and
// warehouse ingestion are distinct concerns the examples never pair), so this
// stays stdlib-backed by design rather than by omission.
package analyticsstore

import (
	"sync"

	"github.com/edgeiot/zeppelin/internal/reassembly"
)

// MemStore is a mutex-guarded, append-only slice of rows. Rows are never
// evicted; callers that need retention limits wrap it.
type MemStore struct {
	mu   sync.Mutex
	rows []reassembly.AnalyticsRow
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) InsertRow(row reassembly.AnalyticsRow) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return true
}

// Rows returns a snapshot copy of all inserted rows.
func (m *MemStore) Rows() []reassembly.AnalyticsRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reassembly.AnalyticsRow, len(m.rows))
	copy(out, m.rows)
	return out
}
