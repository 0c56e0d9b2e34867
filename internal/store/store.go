// Package store 는 incident 기록의 생성, 상태 전이, 조회를 담당한다.
//
// 상태 값의 유일한 기준은 저장소의 status 컬럼이며, 모든 변경은
// 한 행에 대한 조건부 UPDATE 한 번으로 처리된다. 프로세스 전역 잠금은 없다.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/model"
)

var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status filter")
)

// Repository - 영속 계층 인터페이스 (db.Postgres, db.Memory)
type Repository interface {
	Ping(ctx context.Context) error
	InsertIncident(ctx context.Context, r db.IncidentRecord) error
	GetIncident(ctx context.Context, id string) (db.IncidentRecord, error)
	ListIncidents(ctx context.Context, status string) ([]db.IncidentRecord, error)
	TransitionIncident(ctx context.Context, id string, from []string, c db.IncidentChange) (bool, error)
	DeleteIncident(ctx context.Context, id string) error
}

type Store struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithClock - 테스트에서 시각 고정
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp - Postgres 정밀도(마이크로초)에 맞춰 두 저장소의 결과를 동일하게 유지
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Create - pending 상태의 incident 를 만들고 ID 반환
func (s *Store) Create(ctx context.Context, alert model.AlertInput) (string, error) {
	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("failed to marshal alert input: %w", err)
	}

	now := s.timestamp()
	rec := db.IncidentRecord{
		IncidentID: s.newID(),
		Status:     string(model.StatusPending),
		AlertInput: alertJSON,
		AlertName:  alert.AlertName,
		Severity:   alert.Severity,
		Namespace:  alert.Label("namespace"),
		Service:    alert.Label("service"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertIncident(ctx, rec); err != nil {
		return "", err
	}
	return rec.IncidentID, nil
}

// UpdatePrimaryContext - pending -> context_collected
func (s *Store) UpdatePrimaryContext(ctx context.Context, id string, pc model.PrimaryContext) error {
	raw, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("failed to marshal primary context: %w", err)
	}
	return s.transition(ctx, id, []model.IncidentStatus{model.StatusPending}, db.IncidentChange{
		Status:         string(model.StatusContextCollected),
		PrimaryContext: raw,
	})
}

// UpdateEnhancedContext - context_collected -> context_enriched
func (s *Store) UpdateEnhancedContext(ctx context.Context, id string, ec model.EnhancedContext) error {
	raw, err := json.Marshal(ec)
	if err != nil {
		return fmt.Errorf("failed to marshal enhanced context: %w", err)
	}
	return s.transition(ctx, id, []model.IncidentStatus{model.StatusContextCollected}, db.IncidentChange{
		Status:          string(model.StatusContextEnriched),
		EnhancedContext: raw,
	})
}

// UpdateDiagnosticReport - context_enriched -> completed
// root_cause, confidence_score 비정규화 필드도 함께 갱신
func (s *Store) UpdateDiagnosticReport(ctx context.Context, id string, report model.DiagnosticReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostic report: %w", err)
	}
	rootCause := report.RootCause
	confidence := report.ConfidenceScore
	return s.transition(ctx, id, []model.IncidentStatus{model.StatusContextEnriched}, db.IncidentChange{
		Status:           string(model.StatusCompleted),
		DiagnosticReport: raw,
		RootCause:        &rootCause,
		ConfidenceScore:  &confidence,
	})
}

// MarkFailed - 종료되지 않은 모든 상태 -> failed
func (s *Store) MarkFailed(ctx context.Context, id string, detail string) error {
	return s.transition(ctx, id, model.NonTerminalStatuses, db.IncidentChange{
		Status:      string(model.StatusFailed),
		ErrorDetail: &detail,
	})
}

func (s *Store) transition(ctx context.Context, id string, from []model.IncidentStatus, c db.IncidentChange) error {
	c.UpdatedAt = s.timestamp()

	allowed := make([]string, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, string(st))
	}

	ok, err := s.repo.TransitionIncident(ctx, id, allowed, c)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// 반영되지 않은 이유 구분: 없는 ID 인지, 순서가 맞지 않는 전이인지
	rec, err := s.repo.GetIncident(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: incident_id=%s", ErrIncidentNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: incident_id=%s current=%s target=%s", ErrInvalidTransition, id, rec.Status, c.Status)
}

func (s *Store) Get(ctx context.Context, id string) (*model.Incident, error) {
	rec, err := s.repo.GetIncident(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: incident_id=%s", ErrIncidentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

// List - 최신순 스냅샷 (status 가 비어 있으면 전체)
func (s *Store) List(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	recs, err := s.repo.ListIncidents(ctx, string(status))
	if err != nil {
		return nil, err
	}

	list := make([]model.Incident, 0, len(recs))
	for _, rec := range recs {
		inc, err := decode(rec)
		if err != nil {
			return nil, err
		}
		list = append(list, *inc)
	}
	return list, nil
}

// Delete - 관리용 삭제
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteIncident(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: incident_id=%s", ErrIncidentNotFound, id)
	}
	return err
}

func decode(rec db.IncidentRecord) (*model.Incident, error) {
	inc := &model.Incident{
		IncidentID:      rec.IncidentID,
		Status:          model.IncidentStatus(rec.Status),
		AlertName:       rec.AlertName,
		Severity:        rec.Severity,
		Namespace:       rec.Namespace,
		Service:         rec.Service,
		RootCause:       rec.RootCause,
		ConfidenceScore: rec.ConfidenceScore,
		ErrorDetail:     rec.ErrorDetail,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}

	if err := json.Unmarshal(rec.AlertInput, &inc.AlertInput); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert input (incident_id=%s): %w", rec.IncidentID, err)
	}
	if rec.PrimaryContext != nil {
		inc.PrimaryContext = &model.PrimaryContext{}
		if err := json.Unmarshal(rec.PrimaryContext, inc.PrimaryContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal primary context (incident_id=%s): %w", rec.IncidentID, err)
		}
	}
	if rec.EnhancedContext != nil {
		inc.EnhancedContext = &model.EnhancedContext{}
		if err := json.Unmarshal(rec.EnhancedContext, inc.EnhancedContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enhanced context (incident_id=%s): %w", rec.IncidentID, err)
		}
	}
	if rec.DiagnosticReport != nil {
		inc.DiagnosticReport = &model.DiagnosticReport{}
		if err := json.Unmarshal(rec.DiagnosticReport, inc.DiagnosticReport); err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagnostic report (incident_id=%s): %w", rec.IncidentID, err)
		}
	}
	return inc, nil
}
