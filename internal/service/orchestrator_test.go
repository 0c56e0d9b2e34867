package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/metrics"
	"github.com/kube-rca/sage/internal/model"
	"github.com/kube-rca/sage/internal/notify"
	"github.com/kube-rca/sage/internal/stage"
	"github.com/kube-rca/sage/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBuilder struct {
	err error
}

func (f *fakeBuilder) Build(_ context.Context, alert model.AlertInput) (model.PrimaryContext, error) {
	if f.err != nil {
		return model.PrimaryContext{}, f.err
	}
	pc := model.PrimaryContext{
		AlertMetadata:      model.AlertMetadata{AlertName: alert.AlertName, Severity: alert.Severity},
		AffectedComponents: model.AffectedComponents{Namespace: alert.Label("namespace")},
	}
	pc.Normalize()
	return pc, nil
}

type fakeEnricher struct {
	err   error
	block bool
}

func (f *fakeEnricher) Enrich(ctx context.Context, pc model.PrimaryContext) (model.EnhancedContext, error) {
	if f.block {
		<-ctx.Done()
		return model.EnhancedContext{}, &stage.Error{Stage: stage.NameEnricher, Err: ctx.Err()}
	}
	if f.err != nil {
		return model.EnhancedContext{}, f.err
	}
	ec := model.EnhancedContext{KnowledgeSummary: "summary for " + pc.AlertMetadata.AlertName}
	ec.Normalize()
	return ec, nil
}

type fakeAnalyzer struct {
	err       error
	rootCause string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, pc model.PrimaryContext, _ model.EnhancedContext) (model.DiagnosticReport, error) {
	if f.err != nil {
		return model.DiagnosticReport{}, f.err
	}
	rc := f.rootCause
	if rc == "" {
		rc = "root cause of " + pc.AlertMetadata.AlertName
	}
	r := model.DiagnosticReport{
		RootCause:       rc,
		ConfidenceScore: 0.82,
		RecommendedRemediation: model.RemediationPlan{
			ShortTermActions: []string{"raise memory limit"},
		},
	}
	r.Normalize()
	return r, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// failingRepo - 지정한 상태로의 전이만 실패시킴
type failingRepo struct {
	*db.Memory
	failStatus string
}

func (f *failingRepo) TransitionIncident(ctx context.Context, id string, from []string, c db.IncidentChange) (bool, error) {
	if c.Status == f.failStatus {
		return false, errors.New("connection reset")
	}
	return f.Memory.TransitionIncident(ctx, id, from, c)
}

func crashLoopAlert() model.AlertInput {
	return model.AlertInput{
		AlertName:       "PodCrashLoop",
		Severity:        "critical",
		Message:         "container api restarted 5 times",
		Labels:          map[string]string{"namespace": "prod", "service": "api"},
		FiringCondition: "increase(kube_pod_container_status_restarts_total[5m]) > 3",
		Timestamp:       time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestOrchestrator(t *testing.T, stages Stages, n Notifier) (*Orchestrator, *store.Store) {
	t.Helper()
	st := store.New(db.NewMemory())
	return NewOrchestrator(st, stages, n, nil, zaptest.NewLogger(t), time.Second), st
}

func happyStages() Stages {
	return Stages{Builder: &fakeBuilder{}, Enricher: &fakeEnricher{}, Analyzer: &fakeAnalyzer{}}
}

func TestAnalyzeSuccess(t *testing.T) {
	n := &recordingNotifier{}
	reg := prometheus.NewRegistry()
	st := store.New(db.NewMemory())
	o := NewOrchestrator(st, happyStages(), n, metrics.New(reg), zaptest.NewLogger(t), time.Second)

	id, report, err := o.Analyze(context.Background(), crashLoopAlert())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, id)
	assert.GreaterOrEqual(t, report.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, report.ConfidenceScore, 1.0)

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, inc.Status)
	assert.NotNil(t, inc.PrimaryContext)
	assert.NotNil(t, inc.EnhancedContext)
	assert.NotNil(t, inc.DiagnosticReport)
	require.NotNil(t, inc.RootCause)
	assert.Equal(t, "root cause of PodCrashLoop", *inc.RootCause)
	assert.Nil(t, inc.ErrorDetail)

	assert.Equal(t, []notify.Kind{notify.KindStarted, notify.KindCompleted}, n.kinds())
	assert.NotNil(t, n.events[1].Report)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "sage_pipeline_runs_total"))
}

func TestAnalyzeFailsAtEachStage(t *testing.T) {
	boom := &stage.Error{Stage: "test", Err: errors.New("timeout")}

	tests := []struct {
		name         string
		stages       Stages
		wantPrimary  bool
		wantEnhanced bool
	}{
		{
			name:   "context builder",
			stages: Stages{Builder: &fakeBuilder{err: boom}, Enricher: &fakeEnricher{}, Analyzer: &fakeAnalyzer{}},
		},
		{
			name:        "enricher",
			stages:      Stages{Builder: &fakeBuilder{}, Enricher: &fakeEnricher{err: boom}, Analyzer: &fakeAnalyzer{}},
			wantPrimary: true,
		},
		{
			name:         "root cause",
			stages:       Stages{Builder: &fakeBuilder{}, Enricher: &fakeEnricher{}, Analyzer: &fakeAnalyzer{err: boom}},
			wantPrimary:  true,
			wantEnhanced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			o, _ := newTestOrchestrator(t, tt.stages, n)

			id, report, err := o.Analyze(context.Background(), crashLoopAlert())
			require.Error(t, err)
			assert.Same(t, boom, err)
			assert.Nil(t, report)
			require.NotEmpty(t, id)

			inc, err := o.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, model.StatusFailed, inc.Status)
			assert.Equal(t, tt.wantPrimary, inc.PrimaryContext != nil)
			assert.Equal(t, tt.wantEnhanced, inc.EnhancedContext != nil)
			assert.Nil(t, inc.DiagnosticReport)
			require.NotNil(t, inc.ErrorDetail)
			assert.Contains(t, *inc.ErrorDetail, "timeout")

			assert.Equal(t, []notify.Kind{notify.KindStarted, notify.KindFailed}, n.kinds())
		})
	}
}

func TestAnalyzeWrapsPlainErrorsAsStageErrors(t *testing.T) {
	o, _ := newTestOrchestrator(t, Stages{
		Builder:  &fakeBuilder{},
		Enricher: &fakeEnricher{err: errors.New("timeout")},
		Analyzer: &fakeAnalyzer{},
	}, &recordingNotifier{})

	_, _, err := o.Analyze(context.Background(), crashLoopAlert())
	var se *stage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, stage.NameEnricher, se.Stage)
}

func TestAnalyzeStageTimeout(t *testing.T) {
	st := store.New(db.NewMemory())
	o := NewOrchestrator(st, Stages{
		Builder:  &fakeBuilder{},
		Enricher: &fakeEnricher{block: true},
		Analyzer: &fakeAnalyzer{},
	}, &recordingNotifier{}, nil, zaptest.NewLogger(t), 20*time.Millisecond)

	id, _, err := o.Analyze(context.Background(), crashLoopAlert())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, inc.Status)
	assert.NotNil(t, inc.PrimaryContext)
	assert.Nil(t, inc.EnhancedContext)
}

// 호출자가 떠나도 파이프라인은 끝까지 진행
func TestAnalyzeIgnoresCallerCancellation(t *testing.T) {
	o, _ := newTestOrchestrator(t, happyStages(), &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id, report, err := o.Analyze(ctx, crashLoopAlert())
	require.NoError(t, err)
	require.NotNil(t, report)

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, inc.Status)
}

func TestAnalyzeStoreFailure(t *testing.T) {
	repo := &failingRepo{Memory: db.NewMemory(), failStatus: string(model.StatusContextEnriched)}
	n := &recordingNotifier{}
	o := NewOrchestrator(store.New(repo), happyStages(), n, nil, zaptest.NewLogger(t), time.Second)

	id, report, err := o.Analyze(context.Background(), crashLoopAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, report)

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, inc.Status)
	assert.NotNil(t, inc.PrimaryContext)
	assert.Nil(t, inc.EnhancedContext)
	assert.Equal(t, []notify.Kind{notify.KindStarted, notify.KindFailed}, n.kinds())
}

type downChannel struct{}

func (downChannel) Name() string { return "down" }
func (downChannel) Send(context.Context, notify.Message) error {
	return errors.New("503 service unavailable")
}

type captureChannel struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (c *captureChannel) Name() string { return "capture" }
func (c *captureChannel) Send(_ context.Context, m notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func TestNotificationOutageDoesNotAffectAnalysis(t *testing.T) {
	d := notify.NewDispatcher(zaptest.NewLogger(t), nil, notify.RetryPolicy{Retries: 2, Interval: time.Millisecond}, downChannel{})
	o, _ := newTestOrchestrator(t, happyStages(), d)

	id, report, err := o.Analyze(context.Background(), crashLoopAlert())
	require.NoError(t, err)
	require.NotNil(t, report)
	d.Wait()

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, inc.Status)
}

func TestLongRootCauseTruncatedOnlyInNotification(t *testing.T) {
	long := strings.Repeat("x", 10000)
	capture := &captureChannel{}
	d := notify.NewDispatcher(zaptest.NewLogger(t), nil, notify.RetryPolicy{}, capture)
	o, _ := newTestOrchestrator(t, Stages{
		Builder:  &fakeBuilder{},
		Enricher: &fakeEnricher{},
		Analyzer: &fakeAnalyzer{rootCause: long},
	}, d)

	id, _, err := o.Analyze(context.Background(), crashLoopAlert())
	require.NoError(t, err)
	d.Wait()

	var completed *notify.Message
	for i := range capture.msgs {
		if capture.msgs[i].Kind == notify.KindCompleted {
			completed = &capture.msgs[i]
		}
	}
	require.NotNil(t, completed)
	assert.True(t, strings.HasSuffix(completed.Summary, notify.TruncationMarker))
	assert.Less(t, len([]rune(completed.Summary)), 10000)
	assert.NotContains(t, completed.Text, long)

	inc, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, long, inc.DiagnosticReport.RootCause)
	assert.Equal(t, long, *inc.RootCause)
}

func TestConcurrentAnalyses(t *testing.T) {
	o, _ := newTestOrchestrator(t, happyStages(), &recordingNotifier{})

	alerts := []model.AlertInput{crashLoopAlert(), crashLoopAlert()}
	alerts[1].AlertName = "HighLatency"
	alerts[1].Severity = "warning"

	ids := make([]string, len(alerts))
	errs := make([]error, len(alerts))
	var wg sync.WaitGroup
	for i, a := range alerts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], _, errs[i] = o.Analyze(context.Background(), a)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, ids[0], ids[1])

	for i, id := range ids {
		inc, err := o.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, inc.Status)
		assert.Equal(t, alerts[i].AlertName, inc.AlertName)
		assert.Equal(t, "root cause of "+alerts[i].AlertName, inc.DiagnosticReport.RootCause)
	}

	list, err := o.List(context.Background(), model.StatusCompleted)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

type recordingIndexer struct {
	done chan string
}

func (r *recordingIndexer) IndexIncident(_ context.Context, id string, _ model.AlertInput, _ model.DiagnosticReport) error {
	r.done <- id
	return nil
}

func TestAnalyzeIndexesCompletedIncident(t *testing.T) {
	ix := &recordingIndexer{done: make(chan string, 1)}
	o, _ := newTestOrchestrator(t, happyStages(), &recordingNotifier{})
	o.WithIndexer(ix)

	id, _, err := o.Analyze(context.Background(), crashLoopAlert())
	require.NoError(t, err)

	select {
	case got := <-ix.done:
		assert.Equal(t, id, got)
	case <-time.After(time.Second):
		t.Fatal("incident was not indexed")
	}
}

// blockingIndexer - release 가 닫힐 때까지 인덱싱을 끝내지 않음
type blockingIndexer struct {
	started chan struct{}
	release chan struct{}
	done    atomic.Bool
}

func (b *blockingIndexer) IndexIncident(ctx context.Context, _ string, _ model.AlertInput, _ model.DiagnosticReport) error {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.done.Store(true)
	return nil
}

func TestWaitBlocksUntilIndexingFinishes(t *testing.T) {
	ix := &blockingIndexer{started: make(chan struct{}), release: make(chan struct{})}
	o, _ := newTestOrchestrator(t, happyStages(), &recordingNotifier{})
	o.WithIndexer(ix)

	_, _, err := o.Analyze(context.Background(), crashLoopAlert())
	require.NoError(t, err)
	<-ix.started

	waited := make(chan struct{})
	go func() {
		o.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while indexing was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(ix.release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after indexing finished")
	}
	assert.True(t, ix.done.Load())
}
