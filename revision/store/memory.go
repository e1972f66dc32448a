// Package store provides the in-memory Store implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/revision-engine/revision"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	revisions map[revision.RevisionID]*revision.Revision
	audit     map[revision.OrderNumber][]revision.AuditEntry
	auditSeen map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		revisions: make(map[revision.RevisionID]*revision.Revision),
		audit:     make(map[revision.OrderNumber][]revision.AuditEntry),
		auditSeen: make(map[string]bool),
	}
}

// SaveRevision upserts the revision and appends audit entries not yet
// persisted. Clones on the way in so callers cannot mutate stored state.
func (m *Memory) SaveRevision(_ context.Context, rev *revision.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions[rev.ID] = rev.Clone()
	m.appendAuditLocked(rev)
	return nil
}

func (m *Memory) appendAuditLocked(rev *revision.Revision) {
	for _, e := range rev.Audit {
		if m.auditSeen[e.ID] {
			continue
		}
		m.auditSeen[e.ID] = true
		m.audit[rev.OrderNumber] = append(m.audit[rev.OrderNumber], e)
	}
}

func (m *Memory) GetDraft(_ context.Context, order revision.OrderNumber) (*revision.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rev := range m.revisions {
		if rev.OrderNumber == order && rev.Status.IsDraftFamily() {
			return rev.Clone(), nil
		}
	}
	return nil, nil
}

func (m *Memory) GetRevision(_ context.Context, id revision.RevisionID) (*revision.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rev, ok := m.revisions[id]
	if !ok {
		return nil, &revision.NotFoundError{Kind: "revision", Key: string(id)}
	}
	return rev.Clone(), nil
}

// DeleteRevision drops the revision row. Audit rows, including any unsaved
// entries carried on rev, are retained for the order timeline.
func (m *Memory) DeleteRevision(_ context.Context, rev *revision.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendAuditLocked(rev)
	delete(m.revisions, rev.ID)
	return nil
}

func (m *Memory) History(_ context.Context, order revision.OrderNumber) ([]*revision.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*revision.Revision
	for _, rev := range m.revisions {
		if rev.OrderNumber == order && rev.Status == revision.StatusConfirmed {
			result = append(result, rev.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version.Before(result[j].Version) })
	return result, nil
}

func (m *Memory) Active(ctx context.Context, order revision.OrderNumber) (*revision.Revision, error) {
	history, err := m.History(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[len(history)-1], nil
}

func (m *Memory) Timeline(_ context.Context, order revision.OrderNumber) ([]revision.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]revision.AuditEntry(nil), m.audit[order]...), nil
}
