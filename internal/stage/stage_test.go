package stage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/sage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeGenerator - 준비된 응답을 순서대로 반환
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

type fakeRetriever struct {
	byCollection map[string][]model.KnowledgeSnippet
	fail         map[string]error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, collection string, _ int) ([]model.KnowledgeSnippet, error) {
	if err := f.fail[collection]; err != nil {
		return nil, err
	}
	return f.byCollection[collection], nil
}

var noRetry = Policy{}

func testAlert() model.AlertInput {
	return model.AlertInput{
		AlertName:       "PodCrashLoop",
		Severity:        "critical",
		Message:         "container restarting",
		Labels:          map[string]string{"namespace": "prod", "pod": "api-1"},
		FiringCondition: "restarts > 3",
		Timestamp:       time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding prose", in: "Here you go: {\"a\":{\"b\":2}} hope it helps", want: `{"a":{"b":2}}`},
		{name: "no object", in: "I cannot help", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestBuilderFillsMetadataFromAlert(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"primary_context_package": {
		"alert_metadata": {"alert_name": "something else"},
		"affected_components": {"service": "api"},
		"preliminary_analysis": {"observations": ["restarts increasing"]}
	}}`}}
	b := NewBuilder(gen, noRetry, zaptest.NewLogger(t))

	pc, err := b.Build(context.Background(), testAlert())
	require.NoError(t, err)

	assert.Equal(t, "PodCrashLoop", pc.AlertMetadata.AlertName)
	assert.Equal(t, "critical", pc.AlertMetadata.Severity)
	assert.Equal(t, "restarts > 3", pc.AlertMetadata.FiringCondition)
	require.NotNil(t, pc.AffectedComponents.Service)
	assert.Equal(t, "api", *pc.AffectedComponents.Service)
	require.NotNil(t, pc.AffectedComponents.Namespace)
	assert.Equal(t, "prod", *pc.AffectedComponents.Namespace)
	assert.Nil(t, pc.AffectedComponents.Node)
	assert.NotNil(t, pc.EvidenceCollected.Metrics)
	assert.Empty(t, pc.EvidenceCollected.Metrics)
	assert.Equal(t, []string{"restarts increasing"}, pc.PreliminaryAnalysis.Observations)
}

func TestStageErrorsAreWrapped(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("connection refused")}}
	b := NewBuilder(gen, noRetry, zaptest.NewLogger(t))

	_, err := b.Build(context.Background(), testAlert())
	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, NameContextBuilder, stageErr.Stage)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInvalidOutputIsStageError(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "sorry"},
		{name: "confidence above one", response: `{"root_cause": "x", "confidence_score": 1.5}`},
		{name: "negative confidence", response: `{"root_cause": "x", "confidence_score": -0.1}`},
		{name: "missing root cause", response: `{"confidence_score": 0.5}`},
		{name: "wrong type", response: `{"root_cause": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(&fakeGenerator{responses: []string{tt.response}}, noRetry, zaptest.NewLogger(t))
			_, err := a.Analyze(context.Background(), model.PrimaryContext{}, model.EnhancedContext{})

			var stageErr *Error
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, NameRootCause, stageErr.Stage)
			assert.ErrorIs(t, err, ErrInvalidOutput)
		})
	}
}

func TestRetryInsideAdapter(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{errors.New("503"), nil},
		responses: []string{"", "not json", `{"incident_diagnostic_report": {"root_cause": " OOMKilled ", "confidence_score": 0.7}}`},
	}
	a := NewAnalyzer(gen, Policy{Retries: 2, Interval: time.Millisecond}, zaptest.NewLogger(t))

	report, err := a.Analyze(context.Background(), model.PrimaryContext{}, model.EnhancedContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, "OOMKilled", report.RootCause)
	assert.InDelta(t, 0.7, report.ConfidenceScore, 1e-9)
	assert.NotNil(t, report.ReasoningSteps)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"nope"}}
	a := NewAnalyzer(gen, Policy{Retries: 5, Interval: time.Millisecond}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, model.PrimaryContext{}, model.EnhancedContext{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.calls)
}

// cancelOnCall - 첫 호출에서 ctx 를 취소하고 실패
type cancelOnCall struct {
	fakeGenerator
	cancel context.CancelFunc
}

func (c *cancelOnCall) Generate(ctx context.Context, system, prompt string) (string, error) {
	c.cancel()
	return c.fakeGenerator.Generate(ctx, system, prompt)
}

func TestRetryReportsCancellationAfterFailedAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &cancelOnCall{
		fakeGenerator: fakeGenerator{errs: []error{errors.New("upstream 503")}},
		cancel:        cancel,
	}
	a := NewAnalyzer(gen, Policy{Retries: 3, Interval: time.Millisecond}, zaptest.NewLogger(t))

	_, err := a.Analyze(ctx, model.PrimaryContext{}, model.EnhancedContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, NameRootCause, stageErr.Stage)
	assert.Equal(t, 1, gen.calls)
}

func TestEnricherUsesRetrievedKnowledge(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"enhanced_context_package": {
		"knowledge_summary": "seen before",
		"retrieved_knowledge": [{"source_id": "made-up", "relevance": 9}],
		"contextual_enrichment": {"possible_causes": ["memory limit"]}
	}}`}}
	retriever := &fakeRetriever{
		byCollection: map[string][]model.KnowledgeSnippet{
			model.CollectionPlaybooks: {{ID: "7", Text: "restart the pod", Metadata: map[string]any{"filename": "crashloop.md"}, Relevance: 0.6}},
			model.CollectionIncidents: {{ID: "9", Text: "previous OOM", Metadata: map[string]any{"incident_id": "inc-1"}, Relevance: 0.9}},
		},
		fail: map[string]error{model.CollectionDocuments: errors.New("db down")},
	}
	e := NewEnricher(gen, retriever, 3, noRetry, zaptest.NewLogger(t))

	pc := model.PrimaryContext{AlertMetadata: model.AlertMetadata{AlertName: "PodCrashLoop", TriggerTime: testAlert().Timestamp}}
	ec, err := e.Enrich(context.Background(), pc)
	require.NoError(t, err)

	require.Len(t, ec.RetrievedKnowledge, 2)
	assert.Equal(t, "inc-1", ec.RetrievedKnowledge[0].SourceID)
	assert.Equal(t, model.CollectionIncidents, ec.RetrievedKnowledge[0].Collection)
	assert.Equal(t, "crashloop.md", ec.RetrievedKnowledge[1].SourceID)
	for _, item := range ec.RetrievedKnowledge {
		assert.GreaterOrEqual(t, item.Relevance, 0.0)
		assert.LessOrEqual(t, item.Relevance, 1.0)
	}
	assert.Equal(t, "seen before", ec.KnowledgeSummary)
	assert.Equal(t, []string{"memory limit"}, ec.ContextualEnrichment.PossibleCauses)
	assert.Equal(t, "PodCrashLoop@2025-03-01T09:00:00Z", ec.PrimaryContextReference)
	assert.Contains(t, gen.prompts[0], "previous OOM")
}

func TestEnricherWithoutRetriever(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"knowledge_summary": "no knowledge base"}`}}
	e := NewEnricher(gen, nil, 3, noRetry, zaptest.NewLogger(t))

	ec, err := e.Enrich(context.Background(), model.PrimaryContext{})
	require.NoError(t, err)
	assert.NotNil(t, ec.RetrievedKnowledge)
	assert.Empty(t, ec.RetrievedKnowledge)
	assert.Equal(t, "no knowledge base", ec.KnowledgeSummary)
}
