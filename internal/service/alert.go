// Alertmanager 웹훅 처리 비즈니스 로직
//
// 처리 흐름:
//  1. resolved 알림과 severity 가 없는 알림은 건너뜀
//  2. 개별 Alert 를 AlertInput 으로 변환 후 검증
//  3. 알림마다 goroutine 으로 Orchestrator.Analyze 실행
//  4. 접수/건너뜀 개수 반환

package service

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

// Analyzer - 파이프라인 진입점
type Analyzer interface {
	Analyze(ctx context.Context, alert model.AlertInput) (string, *model.DiagnosticReport, error)
}

type AlertService struct {
	analyzer Analyzer
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	// 진행 중인 백그라운드 분석 (종료 시 대기용)
	wg sync.WaitGroup
}

func NewAlertService(analyzer Analyzer, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		analyzer: analyzer,
		validate: validator.New(),
		logger:   logger.Named("alert"),
		now:      time.Now,
	}
}

// ValidateAlert - AlertInput 구조 검증
func (s *AlertService) ValidateAlert(alert model.AlertInput) error {
	return s.validate.Struct(alert)
}

// ProcessWebhook - firing 알림마다 분석을 백그라운드로 시작
func (s *AlertService) ProcessWebhook(webhook model.AlertmanagerWebhook) (accepted, skipped int) {
	for _, a := range webhook.Alerts {
		input, ok := s.toAlertInput(a, webhook.CommonAnnotations)
		if !ok {
			s.logger.Debug("skipping alert",
				zap.String("fingerprint", a.Fingerprint),
				zap.String("status", a.Status),
				zap.String("severity", a.Labels["severity"]),
			)
			skipped++
			continue
		}
		if err := s.ValidateAlert(input); err != nil {
			s.logger.Warn("skipping invalid alert", zap.String("fingerprint", a.Fingerprint), zap.Error(err))
			skipped++
			continue
		}

		accepted++
		s.wg.Add(1)
		go func(alert model.AlertInput, fingerprint string) {
			defer s.wg.Done()
			id, _, err := s.analyzer.Analyze(context.Background(), alert)
			if err != nil {
				s.logger.Warn("background analysis failed",
					zap.String("incident_id", id),
					zap.String("fingerprint", fingerprint),
					zap.Error(err),
				)
			}
		}(input, a.Fingerprint)
	}
	return accepted, skipped
}

// Wait - 백그라운드 분석 종료 대기
func (s *AlertService) Wait() {
	s.wg.Wait()
}

// toAlertInput - Alertmanager 알림을 파이프라인 입력으로 변환
func (s *AlertService) toAlertInput(a model.Alert, common map[string]string) (model.AlertInput, bool) {
	if a.Status == "resolved" {
		return model.AlertInput{}, false
	}
	severity := strings.ToLower(a.Labels["severity"])
	if severity == "" {
		return model.AlertInput{}, false
	}

	annotations := make(map[string]string, len(common)+len(a.Annotations))
	maps.Copy(annotations, common)
	maps.Copy(annotations, a.Annotations)

	labels := make(map[string]string, len(a.Labels))
	maps.Copy(labels, a.Labels)

	name := labels["alertname"]
	ts := a.StartsAt
	if ts.IsZero() {
		ts = s.now()
	}

	return model.AlertInput{
		AlertName:       name,
		Severity:        severity,
		Message:         firstNonEmpty(annotations["description"], annotations["summary"], annotations["message"], name),
		Labels:          labels,
		Annotations:     annotations,
		FiringCondition: firingCondition(name, annotations, a.GeneratorURL),
		Timestamp:       ts.UTC(),
	}, true
}

// firingCondition - expr 어노테이션, generatorURL, 기본 ALERTS 셀렉터 순
func firingCondition(name string, annotations map[string]string, generatorURL string) string {
	if expr := firstNonEmpty(annotations["expr"], annotations["query"]); expr != "" {
		return expr
	}
	if generatorURL != "" {
		return generatorURL
	}
	return fmt.Sprintf(`ALERTS{alertname=%q, alertstate="firing"}`, name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
