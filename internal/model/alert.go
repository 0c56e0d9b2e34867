// 분석 파이프라인 입력(AlertInput)과 Alertmanager 웹훅 페이로드를 정의
// handler, service, stage 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import (
	"fmt"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// AlertInput - 분석 파이프라인의 입력
// 호출자가 생성하며 이후 변경되지 않음
type AlertInput struct {
	AlertName string `json:"alert_name" validate:"required"`
	Severity  string `json:"severity" validate:"required,oneof=critical warning info"`
	Message   string `json:"message" validate:"required"`

	// namespace, service, pod, node 라벨은 영향 범위 식별에 사용
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`

	// 알림을 발생시킨 조건식 (예: PromQL)
	FiringCondition string    `json:"firing_condition" validate:"required"`
	Timestamp       time.Time `json:"timestamp"`
}

// Label - 라벨이 없으면 nil
// "알 수 없음"과 "빈 값"을 구분하기 위해 포인터로 반환
func (a AlertInput) Label(key string) *string {
	v, ok := a.Labels[key]
	if !ok {
		return nil
	}
	return &v
}

// Summary - 알림 이름과 심각도를 한 줄로 요약
func (a AlertInput) Summary() string {
	return fmt.Sprintf("[%s] %s", a.Severity, a.AlertName)
}

// AlertmanagerWebhook - Alertmanager 웹훅 페이로드
// 여러 개의 알림이 그룹으로 묶여서 전송 가능
type AlertmanagerWebhook struct {
	Version  string `json:"version"`
	GroupKey string `json:"groupKey"`

	// max_alerts 설정으로 인해 생략된 알림 개수
	TruncatedAlerts int    `json:"truncatedAlerts"`
	Status          string `json:"status"`
	Receiver        string `json:"receiver"`

	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`

	Alerts []Alert `json:"alerts"`
}

// Alert - Alertmanager 개별 알림
type Alert struct {
	// firing 또는 resolved
	Status string `json:"status"`

	// alertname, severity, namespace, pod 등
	Labels map[string]string `json:"labels"`

	// summary, description, runbook_url, expr 등
	Annotations map[string]string `json:"annotations"`

	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`

	// 알림을 생성한 Prometheus 쿼리 URL
	GeneratorURL string `json:"generatorURL"`
	Fingerprint  string `json:"fingerprint"`
}

// AlertAcceptedResponse - Alertmanager 웹훅 수신 응답
type AlertAcceptedResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
}
