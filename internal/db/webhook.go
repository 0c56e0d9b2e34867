package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kube-rca/sage/internal/model"
)

// EnsureWebhookSchema - webhook_configs 테이블 생성 (없으면)
func (p *Postgres) EnsureWebhookSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS webhook_configs (
			id         SERIAL       PRIMARY KEY,
			name       TEXT         NOT NULL DEFAULT '',
			url        TEXT         NOT NULL DEFAULT '',
			method     TEXT         NOT NULL DEFAULT 'POST',
			headers    JSONB        NOT NULL DEFAULT '[]',
			body       TEXT         NOT NULL DEFAULT '',
			enabled    BOOLEAN      NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
		`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS name TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS enabled BOOLEAN NOT NULL DEFAULT TRUE`,
	}

	for _, query := range queries {
		if _, err := p.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure webhook_configs schema: %w", err)
		}
	}
	return nil
}

func scanWebhookConfig(row pgx.Row) (model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var headersJSON []byte
	if err := row.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Method, &headersJSON, &cfg.Body, &cfg.Enabled, &cfg.UpdatedAt); err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	return cfg, nil
}

// GetWebhookConfigs - 웹훅 설정 목록 조회 (최신순)
// enabledOnly 가 true 면 알림 전송 대상만 조회
func (p *Postgres) GetWebhookConfigs(ctx context.Context, enabledOnly bool) ([]model.WebhookConfig, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, name, url, method, headers, body, enabled, updated_at
		FROM webhook_configs
		WHERE (NOT $1 OR enabled)
		ORDER BY updated_at DESC
	`, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []model.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhook configs: %w", err)
	}
	if configs == nil {
		configs = []model.WebhookConfig{}
	}
	return configs, nil
}

// GetWebhookConfigByID - ID로 단건 조회
func (p *Postgres) GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error) {
	cfg, err := scanWebhookConfig(p.Pool.QueryRow(ctx, `
		SELECT id, name, url, method, headers, body, enabled, updated_at
		FROM webhook_configs
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: webhook config id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateWebhookConfig - 신규 웹훅 설정 저장
func (p *Postgres) CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error) {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal headers: %w", err)
	}

	var id int
	err = p.Pool.QueryRow(ctx, `
		INSERT INTO webhook_configs (name, url, method, headers, body, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, cfg.Enabled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert webhook config: %w", err)
	}
	return id, nil
}

// UpdateWebhookConfig - ID로 웹훅 설정 수정
func (p *Postgres) UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	tag, err := p.Pool.Exec(ctx, `
		UPDATE webhook_configs
		SET name = $1, url = $2, method = $3, headers = $4, body = $5, enabled = $6, updated_at = NOW()
		WHERE id = $7
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, cfg.Enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: webhook config id=%d", ErrNotFound, id)
	}
	return nil
}

// DeleteWebhookConfig - ID로 웹훅 설정 삭제
func (p *Postgres) DeleteWebhookConfig(ctx context.Context, id int) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: webhook config id=%d", ErrNotFound, id)
	}
	return nil
}
