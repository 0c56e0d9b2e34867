package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Memory - 프로세스 내 incident 저장소 (로컬 실행, 테스트용)
// 행 단위 잠금만 사용하므로 서로 다른 incident 는 서로를 막지 않음
type Memory struct {
	rows sync.Map // incident_id -> *memoryRow
	seq  atomic.Uint64
}

type memoryRow struct {
	mu  sync.Mutex
	seq uint64
	rec IncidentRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) InsertIncident(_ context.Context, r IncidentRecord) error {
	row := &memoryRow{seq: m.seq.Add(1), rec: copyRecord(r)}
	if _, loaded := m.rows.LoadOrStore(r.IncidentID, row); loaded {
		return fmt.Errorf("%w: incident_id=%s", ErrDuplicate, r.IncidentID)
	}
	return nil
}

func (m *Memory) GetIncident(_ context.Context, id string) (IncidentRecord, error) {
	v, ok := m.rows.Load(id)
	if !ok {
		return IncidentRecord{}, fmt.Errorf("%w: incident_id=%s", ErrNotFound, id)
	}
	row := v.(*memoryRow)
	row.mu.Lock()
	defer row.mu.Unlock()
	return copyRecord(row.rec), nil
}

func (m *Memory) ListIncidents(_ context.Context, status string) ([]IncidentRecord, error) {
	type entry struct {
		seq uint64
		rec IncidentRecord
	}
	var entries []entry
	m.rows.Range(func(_, v any) bool {
		row := v.(*memoryRow)
		row.mu.Lock()
		if status == "" || row.rec.Status == status {
			entries = append(entries, entry{seq: row.seq, rec: copyRecord(row.rec)})
		}
		row.mu.Unlock()
		return true
	})

	// 최신순, 같은 시각이면 나중에 들어온 것이 먼저
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	list := make([]IncidentRecord, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.rec)
	}
	return list, nil
}

func (m *Memory) TransitionIncident(_ context.Context, id string, from []string, c IncidentChange) (bool, error) {
	v, ok := m.rows.Load(id)
	if !ok {
		return false, nil
	}
	row := v.(*memoryRow)
	row.mu.Lock()
	defer row.mu.Unlock()

	if !slices.Contains(from, row.rec.Status) {
		return false, nil
	}

	rec := &row.rec
	rec.Status = c.Status
	if c.PrimaryContext != nil {
		rec.PrimaryContext = slices.Clone(c.PrimaryContext)
	}
	if c.EnhancedContext != nil {
		rec.EnhancedContext = slices.Clone(c.EnhancedContext)
	}
	if c.DiagnosticReport != nil {
		rec.DiagnosticReport = slices.Clone(c.DiagnosticReport)
	}
	if c.RootCause != nil {
		rec.RootCause = ptr(*c.RootCause)
	}
	if c.ConfidenceScore != nil {
		rec.ConfidenceScore = ptr(*c.ConfidenceScore)
	}
	if c.ErrorDetail != nil {
		rec.ErrorDetail = ptr(*c.ErrorDetail)
	}
	rec.UpdatedAt = c.UpdatedAt
	return true, nil
}

func (m *Memory) DeleteIncident(_ context.Context, id string) error {
	if _, loaded := m.rows.LoadAndDelete(id); !loaded {
		return fmt.Errorf("%w: incident_id=%s", ErrNotFound, id)
	}
	return nil
}

// copyRecord - 호출자와 저장된 행이 메모리를 공유하지 않도록 깊은 복사
func copyRecord(r IncidentRecord) IncidentRecord {
	out := r
	out.AlertInput = slices.Clone(r.AlertInput)
	out.PrimaryContext = slices.Clone(r.PrimaryContext)
	out.EnhancedContext = slices.Clone(r.EnhancedContext)
	out.DiagnosticReport = slices.Clone(r.DiagnosticReport)
	out.Namespace = clonePtr(r.Namespace)
	out.Service = clonePtr(r.Service)
	out.RootCause = clonePtr(r.RootCause)
	out.ConfidenceScore = clonePtr(r.ConfidenceScore)
	out.ErrorDetail = clonePtr(r.ErrorDetail)
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
