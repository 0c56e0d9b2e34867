package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// IncidentRecord - incidents 테이블 한 행
// JSON 컬럼은 직렬화된 그대로 보관하며 NULL 이면 nil
type IncidentRecord struct {
	IncidentID       string
	Status           string
	AlertInput       []byte
	PrimaryContext   []byte
	EnhancedContext  []byte
	DiagnosticReport []byte

	AlertName       string
	Severity        string
	Namespace       *string
	Service         *string
	RootCause       *string
	ConfidenceScore *float64
	ErrorDetail     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IncidentChange - 상태 전이와 함께 반영할 값
// nil 필드는 기존 값을 유지
type IncidentChange struct {
	Status           string
	PrimaryContext   []byte
	EnhancedContext  []byte
	DiagnosticReport []byte
	RootCause        *string
	ConfidenceScore  *float64
	ErrorDetail      *string
	UpdatedAt        time.Time
}

// EnsureIncidentSchema - incidents 테이블과 조회용 인덱스 생성 (없으면)
func (p *Postgres) EnsureIncidentSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS incidents (
			incident_id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			status TEXT NOT NULL DEFAULT 'pending',
			alert_input JSONB NOT NULL,
			primary_context JSONB,
			enhanced_context JSONB,
			diagnostic_report JSONB,
			alert_name TEXT NOT NULL,
			severity TEXT NOT NULL,
			namespace TEXT,
			service TEXT,
			root_cause TEXT,
			confidence_score DOUBLE PRECISION,
			error_detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		// seq 이전에 만들어진 테이블
		`ALTER TABLE incidents ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		`CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents(status)`,
		`DROP INDEX IF EXISTS incidents_created_at_idx`,
		`CREATE INDEX IF NOT EXISTS incidents_created_at_seq_idx ON incidents(created_at DESC, seq DESC)`,
		`CREATE INDEX IF NOT EXISTS incidents_alert_name_idx ON incidents(alert_name)`,
		`CREATE INDEX IF NOT EXISTS incidents_severity_idx ON incidents(severity)`,
		`CREATE INDEX IF NOT EXISTS incidents_namespace_idx ON incidents(namespace) WHERE namespace IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS incidents_service_idx ON incidents(service) WHERE service IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := p.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure incidents schema: %w", err)
		}
	}
	return nil
}

const incidentColumns = `
	incident_id, status, alert_input, primary_context, enhanced_context, diagnostic_report,
	alert_name, severity, namespace, service, root_cause, confidence_score, error_detail,
	created_at, updated_at`

func scanIncident(row pgx.Row) (IncidentRecord, error) {
	var r IncidentRecord
	err := row.Scan(
		&r.IncidentID,
		&r.Status,
		&r.AlertInput,
		&r.PrimaryContext,
		&r.EnhancedContext,
		&r.DiagnosticReport,
		&r.AlertName,
		&r.Severity,
		&r.Namespace,
		&r.Service,
		&r.RootCause,
		&r.ConfidenceScore,
		&r.ErrorDetail,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// InsertIncident - 새 incident 저장 (단일 INSERT)
func (p *Postgres) InsertIncident(ctx context.Context, r IncidentRecord) error {
	query := `
		INSERT INTO incidents (
			incident_id, status, alert_input, alert_name, severity,
			namespace, service, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (incident_id) DO NOTHING
	`

	tag, err := p.Pool.Exec(ctx, query,
		r.IncidentID,
		r.Status,
		r.AlertInput,
		r.AlertName,
		r.Severity,
		r.Namespace,
		r.Service,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: incident_id=%s", ErrDuplicate, r.IncidentID)
	}
	return nil
}

func (p *Postgres) GetIncident(ctx context.Context, id string) (IncidentRecord, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE incident_id = $1`

	r, err := scanIncident(p.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return IncidentRecord{}, fmt.Errorf("%w: incident_id=%s", ErrNotFound, id)
	}
	if err != nil {
		return IncidentRecord{}, fmt.Errorf("failed to get incident: %w", err)
	}
	return r, nil
}

// ListIncidents - 최신순 목록 (status 가 비어 있으면 전체)
func (p *Postgres) ListIncidents(ctx context.Context, status string) ([]IncidentRecord, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, seq DESC`

	rows, err := p.Pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var list []IncidentRecord
	for rows.Next() {
		r, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}

	if list == nil {
		list = []IncidentRecord{}
	}
	return list, nil
}

// TransitionIncident - 현재 상태가 from 중 하나일 때만 change 를 반영
// 조건이 맞지 않으면 아무것도 바꾸지 않고 false 를 반환
func (p *Postgres) TransitionIncident(ctx context.Context, id string, from []string, c IncidentChange) (bool, error) {
	query := `
		UPDATE incidents
		SET
			status = $3,
			primary_context = COALESCE($4::jsonb, primary_context),
			enhanced_context = COALESCE($5::jsonb, enhanced_context),
			diagnostic_report = COALESCE($6::jsonb, diagnostic_report),
			root_cause = COALESCE($7, root_cause),
			confidence_score = COALESCE($8, confidence_score),
			error_detail = COALESCE($9, error_detail),
			updated_at = $10
		WHERE incident_id = $1 AND status = ANY($2)
	`

	commandTag, err := p.Pool.Exec(ctx, query,
		id,
		from,
		c.Status,
		c.PrimaryContext,
		c.EnhancedContext,
		c.DiagnosticReport,
		c.RootCause,
		c.ConfidenceScore,
		c.ErrorDetail,
		c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update incident: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

// DeleteIncident - 관리용 삭제 (파이프라인에서는 사용하지 않음)
func (p *Postgres) DeleteIncident(ctx context.Context, id string) error {
	commandTag, err := p.Pool.Exec(ctx, `DELETE FROM incidents WHERE incident_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: incident_id=%s", ErrNotFound, id)
	}
	return nil
}
