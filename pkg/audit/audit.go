// Package audit implements the AuditSink observer: a notification fired
// after a SyncEngine operation commits, carrying the same AuditEntry that
// was written transactionally to the audit_entries table (§3, §4.2).
//
// The persisted row is the system of record; AuditSink exists purely as an
// extension point so operator-facing consumers (metrics, alerting) can
// react to a sync without ever reading the hot path back out of the
// database (§9 Design Note: "Observer interface for audits... production
// writes to the RDBMS, tests capture in memory").
package audit

import (
	"context"
	"sync"

	"goldbox-rpg/pkg/model"
)

// Sink observes committed audit entries.
type Sink interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// MemorySink captures entries in memory; used by SyncEngine tests in place
// of a metrics-backed Sink.
type MemorySink struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(ctx context.Context, entry model.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a snapshot of every recorded entry.
func (m *MemorySink) Entries() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
