package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kube-rca/sage/internal/model"
	tmpl "github.com/kube-rca/sage/internal/template"
	"go.uber.org/zap"
)

// webhookConfigReader - DB 인터페이스 (전송 전용)
type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context, enabledOnly bool) ([]model.WebhookConfig, error)
}

// WebhookChannel - 사용자가 등록한 웹훅으로 알림을 전송
//
// 개별 config 실패는 로그만 남기고 나머지는 계속 전송합니다.
// 모든 config 가 실패했을 때만 에러를 반환하므로 재시도 시 성공한 곳에 중복 전송하지 않습니다.
type WebhookChannel struct {
	configs    webhookConfigReader
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWebhookChannel(configs webhookConfigReader, logger *zap.Logger) *WebhookChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookChannel{
		configs: configs,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("webhook"),
	}
}

func (w *WebhookChannel) Name() string {
	return "webhook"
}

func (w *WebhookChannel) Send(ctx context.Context, msg Message) error {
	configs, err := w.configs.GetWebhookConfigs(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to load webhook configs: %w", err)
	}

	data := templateData(msg)
	var (
		errs      []error
		attempted int
	)
	for _, cfg := range configs {
		if cfg.URL == "" {
			w.logger.Warn("skipping webhook config with empty URL", zap.Int("config_id", cfg.ID))
			continue
		}
		attempted++

		body := tmpl.RenderBody(cfg.Body, data, isJSON(cfg))
		if err := w.sendHTTP(ctx, cfg, body); err != nil {
			w.logger.Warn("webhook delivery failed",
				zap.Int("config_id", cfg.ID),
				zap.String("url", cfg.URL),
				zap.String("incident_id", msg.IncidentID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("config id=%d: %w", cfg.ID, err))
			continue
		}
		w.logger.Debug("webhook delivered",
			zap.Int("config_id", cfg.ID),
			zap.String("incident_id", msg.IncidentID),
		)
	}

	if attempted > 0 && len(errs) == attempted {
		return errors.Join(errs...)
	}
	return nil
}

func templateData(msg Message) tmpl.Data {
	return tmpl.Data{
		IncidentID:     msg.IncidentID,
		IncidentStatus: string(msg.Status),
		EventKind:      string(msg.Kind),
		Duration:       msg.Duration,
		Summary:        msg.Summary,
		Confidence:     msg.Confidence,
		Text:           msg.Text,
		AlertName:      msg.AlertName,
		AlertSeverity:  msg.Severity,
		AlertNamespace: msg.Namespace,
		AlertService:   msg.Service,
		AlertMessage:   msg.AlertMessage,
	}
}

// isJSON - Content-Type 이 없거나 JSON 이면 true
func isJSON(cfg model.WebhookConfig) bool {
	for _, h := range cfg.Headers {
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			return strings.Contains(strings.ToLower(h.Value), "json")
		}
	}
	return true
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (w *WebhookChannel) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}
