package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock - 호출할 때마다 1초씩 증가
func tickingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newTestStore() *Store {
	return New(db.NewMemory(), WithClock(tickingClock()))
}

func sampleAlert() model.AlertInput {
	return model.AlertInput{
		AlertName:       "PodCrashLoop",
		Severity:        model.SeverityCritical,
		Message:         "pod api-7f9 restarted 5 times",
		Labels:          map[string]string{"namespace": "prod", "pod": "api-7f9"},
		Annotations:     map[string]string{"summary": "crash loop"},
		FiringCondition: `rate(kube_pod_container_status_restarts_total[5m]) > 0`,
		Timestamp:       time.Date(2025, 3, 1, 8, 59, 0, 0, time.UTC),
	}
}

func samplePrimary() model.PrimaryContext {
	ns := "prod"
	pc := model.PrimaryContext{
		AlertMetadata:      model.AlertMetadata{AlertName: "PodCrashLoop", Severity: "critical"},
		AffectedComponents: model.AffectedComponents{Namespace: &ns},
	}
	pc.Normalize()
	return pc
}

func sampleEnhanced() model.EnhancedContext {
	ec := model.EnhancedContext{KnowledgeSummary: "OOM kills seen before"}
	ec.Normalize()
	return ec
}

func sampleReport() model.DiagnosticReport {
	r := model.DiagnosticReport{RootCause: "memory limit too low", ConfidenceScore: 0.8}
	r.Normalize()
	return r
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	id, err := s.Create(ctx, sampleAlert())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	inc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, inc.Status)
	assert.Equal(t, "PodCrashLoop", inc.AlertName)
	assert.Equal(t, "critical", inc.Severity)
	require.NotNil(t, inc.Namespace)
	assert.Equal(t, "prod", *inc.Namespace)
	// service 라벨이 없으면 빈 문자열이 아니라 nil
	assert.Nil(t, inc.Service)
	assert.Nil(t, inc.PrimaryContext)
	assert.Nil(t, inc.EnhancedContext)
	assert.Nil(t, inc.DiagnosticReport)
	assert.Equal(t, sampleAlert().Labels, inc.AlertInput.Labels)
	assert.True(t, inc.CreatedAt.Equal(inc.UpdatedAt))
}

func TestSuccessPathTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id, err := s.Create(ctx, sampleAlert())
	require.NoError(t, err)

	require.NoError(t, s.UpdatePrimaryContext(ctx, id, samplePrimary()))
	inc, _ := s.Get(ctx, id)
	assert.Equal(t, model.StatusContextCollected, inc.Status)
	assert.NotNil(t, inc.PrimaryContext)
	assert.True(t, inc.UpdatedAt.After(inc.CreatedAt))
	prevUpdated := inc.UpdatedAt

	require.NoError(t, s.UpdateEnhancedContext(ctx, id, sampleEnhanced()))
	inc, _ = s.Get(ctx, id)
	assert.Equal(t, model.StatusContextEnriched, inc.Status)
	assert.Equal(t, "OOM kills seen before", inc.EnhancedContext.KnowledgeSummary)
	assert.True(t, inc.UpdatedAt.After(prevUpdated))

	require.NoError(t, s.UpdateDiagnosticReport(ctx, id, sampleReport()))
	inc, _ = s.Get(ctx, id)
	assert.Equal(t, model.StatusCompleted, inc.Status)
	require.NotNil(t, inc.RootCause)
	assert.Equal(t, "memory limit too low", *inc.RootCause)
	require.NotNil(t, inc.ConfidenceScore)
	assert.InDelta(t, 0.8, *inc.ConfidenceScore, 1e-9)
	assert.Nil(t, inc.ErrorDetail)
}

func TestInvalidTransitionDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id, err := s.Create(ctx, sampleAlert())
	require.NoError(t, err)

	before, err := s.Get(ctx, id)
	require.NoError(t, err)
	beforeJSON, _ := json.Marshal(before)

	err = s.UpdateEnhancedContext(ctx, id, sampleEnhanced())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "current=pending")

	err = s.UpdateDiagnosticReport(ctx, id, sampleReport())
	require.ErrorIs(t, err, ErrInvalidTransition)

	after, err := s.Get(ctx, id)
	require.NoError(t, err)
	afterJSON, _ := json.Marshal(after)
	assert.JSONEq(t, string(beforeJSON), string(afterJSON))
}

func TestTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	failedID, _ := s.Create(ctx, sampleAlert())
	require.NoError(t, s.MarkFailed(ctx, failedID, "stage builder: timeout"))
	assert.ErrorIs(t, s.MarkFailed(ctx, failedID, "again"), ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdatePrimaryContext(ctx, failedID, samplePrimary()), ErrInvalidTransition)

	inc, _ := s.Get(ctx, failedID)
	assert.Equal(t, model.StatusFailed, inc.Status)
	require.NotNil(t, inc.ErrorDetail)
	assert.Equal(t, "stage builder: timeout", *inc.ErrorDetail)

	doneID, _ := s.Create(ctx, sampleAlert())
	require.NoError(t, s.UpdatePrimaryContext(ctx, doneID, samplePrimary()))
	require.NoError(t, s.UpdateEnhancedContext(ctx, doneID, sampleEnhanced()))
	require.NoError(t, s.UpdateDiagnosticReport(ctx, doneID, sampleReport()))
	assert.ErrorIs(t, s.MarkFailed(ctx, doneID, "late"), ErrInvalidTransition)

	inc, _ = s.Get(ctx, doneID)
	assert.Equal(t, model.StatusCompleted, inc.Status)
}

func TestMarkFailedKeepsEarlierFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id, _ := s.Create(ctx, sampleAlert())
	require.NoError(t, s.UpdatePrimaryContext(ctx, id, samplePrimary()))
	require.NoError(t, s.MarkFailed(ctx, id, "enricher: timeout"))

	inc, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, inc.Status)
	assert.NotNil(t, inc.PrimaryContext)
	assert.Nil(t, inc.EnhancedContext)
	assert.Nil(t, inc.DiagnosticReport)
}

func TestUnknownID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrIncidentNotFound)
	assert.ErrorIs(t, s.UpdatePrimaryContext(ctx, "nope", samplePrimary()), ErrIncidentNotFound)
	assert.ErrorIs(t, s.MarkFailed(ctx, "nope", "x"), ErrIncidentNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrIncidentNotFound)
}

func TestGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id, _ := s.Create(ctx, sampleAlert())
	require.NoError(t, s.UpdatePrimaryContext(ctx, id, samplePrimary()))

	first, err := s.Get(ctx, id)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := s.Get(ctx, id)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, firstJSON, againJSON)
	}
}

func TestListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	first, _ := s.Create(ctx, sampleAlert())
	second, _ := s.Create(ctx, sampleAlert())
	third, _ := s.Create(ctx, sampleAlert())
	require.NoError(t, s.MarkFailed(ctx, second, "boom"))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third, all[0].IncidentID)
	assert.Equal(t, second, all[1].IncidentID)
	assert.Equal(t, first, all[2].IncidentID)

	failed, err := s.List(ctx, model.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second, failed[0].IncidentID)

	_, err = s.List(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id, _ := s.Create(ctx, sampleAlert())

	require.NoError(t, s.Delete(ctx, id))
	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestConcurrentIncidentsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New(db.NewMemory())

	const n = 30
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			alert := sampleAlert()
			alert.AlertName = fmt.Sprintf("Alert-%d", i)
			id, err := s.Create(ctx, alert)
			if !assert.NoError(t, err) {
				return
			}
			ids[i] = id
			assert.NoError(t, s.UpdatePrimaryContext(ctx, id, samplePrimary()))
			assert.NoError(t, s.UpdateEnhancedContext(ctx, id, sampleEnhanced()))
			if i%2 == 0 {
				assert.NoError(t, s.UpdateDiagnosticReport(ctx, id, sampleReport()))
			} else {
				assert.NoError(t, s.MarkFailed(ctx, id, "odd"))
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		require.False(t, seen[id], "duplicate id")
		seen[id] = true

		inc, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Alert-%d", i), inc.AlertName)
		if i%2 == 0 {
			assert.Equal(t, model.StatusCompleted, inc.Status)
		} else {
			assert.Equal(t, model.StatusFailed, inc.Status)
		}
	}
}
