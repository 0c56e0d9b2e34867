package service

import (
	"context"

	"github.com/kube-rca/sage/internal/model"
)

// webhookRepo - DB 인터페이스
type webhookRepo interface {
	GetWebhookConfigs(ctx context.Context, enabledOnly bool) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

// WebhookService - 웹훅 알림 채널 설정 관리
type WebhookService struct {
	db webhookRepo
}

func NewWebhookService(db webhookRepo) *WebhookService {
	return &WebhookService{db: db}
}

func (s *WebhookService) ListWebhookConfigs(ctx context.Context, enabledOnly bool) ([]model.WebhookConfig, error) {
	return s.db.GetWebhookConfigs(ctx, enabledOnly)
}

func (s *WebhookService) GetWebhookConfig(ctx context.Context, id int) (*model.WebhookConfig, error) {
	return s.db.GetWebhookConfigByID(ctx, id)
}

func (s *WebhookService) CreateWebhookConfig(ctx context.Context, req model.WebhookConfigRequest) (int, error) {
	return s.db.CreateWebhookConfig(ctx, configFromRequest(req))
}

func (s *WebhookService) UpdateWebhookConfig(ctx context.Context, id int, req model.WebhookConfigRequest) error {
	return s.db.UpdateWebhookConfig(ctx, id, configFromRequest(req))
}

func (s *WebhookService) DeleteWebhookConfig(ctx context.Context, id int) error {
	return s.db.DeleteWebhookConfig(ctx, id)
}

func configFromRequest(req model.WebhookConfigRequest) model.WebhookConfig {
	cfg := model.WebhookConfig{
		Name:    req.Name,
		URL:     req.URL,
		Method:  req.Method,
		Body:    req.Body,
		Headers: req.Headers,
		Enabled: true,
	}
	if cfg.Method == "" {
		cfg.Method = "POST"
	}
	if cfg.Headers == nil {
		cfg.Headers = []model.WebhookHeader{}
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	return cfg
}
