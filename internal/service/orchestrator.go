// Incident 분석 파이프라인
//
// 처리 흐름:
//  1. Store.Create 로 incident 생성 (pending)
//  2. 시작 알림 전송 (best-effort)
//  3. Stage 1 (context builder) -> UpdatePrimaryContext
//  4. Stage 2 (enricher) -> UpdateEnhancedContext
//  5. Stage 3 (root cause) -> UpdateDiagnosticReport, 완료 알림, 보고서 반환
//  6. 실패 시 MarkFailed, 실패 알림, 원래 에러 반환
//
// 호출자가 연결을 끊어도 파이프라인은 끝까지 진행되어 결과가 저장된다.

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kube-rca/sage/internal/metrics"
	"github.com/kube-rca/sage/internal/model"
	"github.com/kube-rca/sage/internal/notify"
	"github.com/kube-rca/sage/internal/stage"
	"github.com/kube-rca/sage/internal/store"
	"go.uber.org/zap"
)

const (
	defaultStageTimeout = 3 * time.Minute
	indexTimeout        = time.Minute
)

type ContextBuilder interface {
	Build(ctx context.Context, alert model.AlertInput) (model.PrimaryContext, error)
}

type Enricher interface {
	Enrich(ctx context.Context, pc model.PrimaryContext) (model.EnhancedContext, error)
}

type RootCauseAnalyzer interface {
	Analyze(ctx context.Context, pc model.PrimaryContext, ec model.EnhancedContext) (model.DiagnosticReport, error)
}

// Notifier - 전송 실패를 돌려주지 않음
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// IncidentIndexer - 완료된 incident 를 지식 저장소에 기록
type IncidentIndexer interface {
	IndexIncident(ctx context.Context, incidentID string, alert model.AlertInput, report model.DiagnosticReport) error
}

// Stages - 단계 어댑터 묶음
type Stages struct {
	Builder  ContextBuilder
	Enricher Enricher
	Analyzer RootCauseAnalyzer
}

// Orchestrator 는 호출 사이에 상태를 갖지 않으며 여러 인스턴스가 같은 Store 를 공유해도 됨
type Orchestrator struct {
	store        *store.Store
	stages       Stages
	notifier     Notifier
	indexer      IncidentIndexer
	metrics      *metrics.Metrics
	logger       *zap.Logger
	stageTimeout time.Duration

	// 백그라운드 인덱싱
	wg sync.WaitGroup
}

func NewOrchestrator(st *store.Store, stages Stages, notifier Notifier, m *metrics.Metrics, logger *zap.Logger, stageTimeout time.Duration) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stageTimeout <= 0 {
		stageTimeout = defaultStageTimeout
	}
	return &Orchestrator{
		store:        st,
		stages:       stages,
		notifier:     notifier,
		metrics:      m,
		logger:       logger.Named("orchestrator"),
		stageTimeout: stageTimeout,
	}
}

// WithIndexer - 완료된 진단 결과를 incidents 컬렉션에 색인
func (o *Orchestrator) WithIndexer(ix IncidentIndexer) *Orchestrator {
	o.indexer = ix
	return o
}

// Analyze - 알림 하나에 대해 3단계 분석을 순서대로 실행
// 에러가 나도 incident_id 가 비어있지 않으면 조회 가능한 기록이 존재함
func (o *Orchestrator) Analyze(ctx context.Context, alert model.AlertInput) (string, *model.DiagnosticReport, error) {
	ctx = context.WithoutCancel(ctx)

	id, err := o.store.Create(ctx, alert)
	if err != nil {
		o.logger.Error("failed to create incident", zap.String("alert_name", alert.AlertName), zap.Error(err))
		return "", nil, fmt.Errorf("failed to create incident: %w", err)
	}

	log := o.logger.With(zap.String("incident_id", id), zap.String("alert_name", alert.AlertName))
	log.Info("incident analysis started", zap.String("severity", alert.Severity))

	start := time.Now()
	o.metrics.PipelineStarted()
	o.notify(ctx, notify.Started(id, alert))

	// Stage 1
	pc, err := runStage(ctx, o, stage.NameContextBuilder, func(ctx context.Context) (model.PrimaryContext, error) {
		return o.stages.Builder.Build(ctx, alert)
	})
	if err != nil {
		return id, nil, o.fail(ctx, log, id, alert, start, err)
	}
	if err := o.store.UpdatePrimaryContext(ctx, id, pc); err != nil {
		return id, nil, o.storeFailure(ctx, log, id, alert, start, "primary context", err)
	}

	// Stage 2
	ec, err := runStage(ctx, o, stage.NameEnricher, func(ctx context.Context) (model.EnhancedContext, error) {
		return o.stages.Enricher.Enrich(ctx, pc)
	})
	if err != nil {
		return id, nil, o.fail(ctx, log, id, alert, start, err)
	}
	if err := o.store.UpdateEnhancedContext(ctx, id, ec); err != nil {
		return id, nil, o.storeFailure(ctx, log, id, alert, start, "enhanced context", err)
	}

	// Stage 3
	report, err := runStage(ctx, o, stage.NameRootCause, func(ctx context.Context) (model.DiagnosticReport, error) {
		return o.stages.Analyzer.Analyze(ctx, pc, ec)
	})
	if err != nil {
		return id, nil, o.fail(ctx, log, id, alert, start, err)
	}
	if err := o.store.UpdateDiagnosticReport(ctx, id, report); err != nil {
		return id, nil, o.storeFailure(ctx, log, id, alert, start, "diagnostic report", err)
	}

	elapsed := time.Since(start)
	o.metrics.PipelineFinished(true, elapsed)
	o.notify(ctx, notify.Completed(id, alert, elapsed, report))
	log.Info("incident analysis completed",
		zap.Duration("duration", elapsed),
		zap.Float64("confidence_score", report.ConfidenceScore),
	)

	o.index(ctx, log, id, alert, report)
	return id, &report, nil
}

// runStage - 단계 호출에 timeout 적용
// 어댑터가 ctx 를 무시하고 멈춰도 timeout 이 지나면 실패로 처리
func runStage[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	type result struct {
		out T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := fn(stageCtx)
		done <- result{out: out, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-stageCtx.Done():
		res.err = fmt.Errorf("stage timed out after %s: %w", o.stageTimeout, stageCtx.Err())
	}
	o.metrics.ObserveStage(name, res.err == nil, time.Since(start))

	if res.err != nil {
		var se *stage.Error
		if !errors.As(res.err, &se) {
			res.err = &stage.Error{Stage: name, Err: res.err}
		}
		var zero T
		return zero, res.err
	}
	return res.out, nil
}

// fail - incident 를 failed 로 기록하고 실패 알림 전송, cause 를 그대로 반환
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, id string, alert model.AlertInput, start time.Time, cause error) error {
	elapsed := time.Since(start)
	log.Warn("incident analysis failed", zap.Duration("duration", elapsed), zap.Error(cause))

	if err := o.store.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Error("failed to mark incident as failed", zap.Error(err))
	}
	o.metrics.PipelineFinished(false, elapsed)
	o.notify(ctx, notify.Failed(id, alert, elapsed, cause))
	return cause
}

// storeFailure - 단계 결과 저장 실패. 정상 동작에서는 발생하지 않아야 함
func (o *Orchestrator) storeFailure(ctx context.Context, log *zap.Logger, id string, alert model.AlertInput, start time.Time, what string, err error) error {
	if errors.Is(err, store.ErrInvalidTransition) {
		log.Error("invalid incident transition", zap.String("field", what), zap.Error(err))
	} else {
		log.Error("failed to persist stage output", zap.String("field", what), zap.Error(err))
	}
	return o.fail(ctx, log, id, alert, start, fmt.Errorf("failed to persist %s: %w", what, err))
}

func (o *Orchestrator) notify(ctx context.Context, ev notify.Event) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, ev)
}

// index - 백그라운드에서 진단 결과 색인, 실패는 로그만 남김
func (o *Orchestrator) index(ctx context.Context, log *zap.Logger, id string, alert model.AlertInput, report model.DiagnosticReport) {
	if o.indexer == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while indexing incident", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, indexTimeout)
		defer cancel()
		if err := o.indexer.IndexIncident(ctx, id, alert, report); err != nil {
			log.Warn("failed to index incident", zap.Error(err))
		}
	}()
}

// Wait - 진행 중인 인덱싱이 끝날 때까지 대기 (종료, 테스트용)
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*model.Incident, error) {
	return o.store.Get(ctx, id)
}

func (o *Orchestrator) List(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	return o.store.List(ctx, status)
}

// Delete - 관리용 삭제, 파이프라인에서는 사용하지 않음
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	return o.store.Delete(ctx, id)
}
