package model

import "time"

// IncidentStatus - 파이프라인 진행 상태
//
// 정상 경로: pending -> context_collected -> context_enriched -> completed
// 실패 경로: 종료 상태가 아닌 모든 상태 -> failed
type IncidentStatus string

const (
	StatusPending          IncidentStatus = "pending"
	StatusContextCollected IncidentStatus = "context_collected"
	StatusContextEnriched  IncidentStatus = "context_enriched"
	StatusCompleted        IncidentStatus = "completed"
	StatusFailed           IncidentStatus = "failed"
)

// Terminal - completed, failed 는 더 이상 바뀌지 않음
func (s IncidentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusContextCollected, StatusContextEnriched, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// NonTerminalStatuses - failed 로 전이 가능한 상태 목록
var NonTerminalStatuses = []IncidentStatus{StatusPending, StatusContextCollected, StatusContextEnriched}

// Incident - 하나의 알림이 분석 파이프라인을 거치는 과정을 기록
type Incident struct {
	IncidentID string         `json:"incident_id"`
	Status     IncidentStatus `json:"status"`
	AlertInput AlertInput     `json:"alert_input"`

	// 각 단계가 끝나기 전까지 null
	PrimaryContext   *PrimaryContext   `json:"primary_context"`
	EnhancedContext  *EnhancedContext  `json:"enhanced_context"`
	DiagnosticReport *DiagnosticReport `json:"diagnostic_report"`

	// 조회용 비정규화 필드 (원본은 위의 JSON 필드)
	AlertName       string   `json:"alert_name"`
	Severity        string   `json:"severity"`
	Namespace       *string  `json:"namespace"`
	Service         *string  `json:"service"`
	RootCause       *string  `json:"root_cause"`
	ConfidenceScore *float64 `json:"confidence_score"`

	// failed 상태일 때 원인
	ErrorDetail *string `json:"error_detail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IncidentListItem - Incident 목록 조회용 구조체
type IncidentListItem struct {
	IncidentID      string         `json:"incident_id"`
	Status          IncidentStatus `json:"status"`
	AlertName       string         `json:"alert_name"`
	Severity        string         `json:"severity"`
	Namespace       *string        `json:"namespace"`
	Service         *string        `json:"service"`
	RootCause       *string        `json:"root_cause"`
	ConfidenceScore *float64       `json:"confidence_score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (i Incident) ListItem() IncidentListItem {
	return IncidentListItem{
		IncidentID:      i.IncidentID,
		Status:          i.Status,
		AlertName:       i.AlertName,
		Severity:        i.Severity,
		Namespace:       i.Namespace,
		Service:         i.Service,
		RootCause:       i.RootCause,
		ConfidenceScore: i.ConfidenceScore,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

// ============================================================================
// API Response Envelope
// ============================================================================

// AnalyzeResponse - 분석 요청 성공 응답
type AnalyzeResponse struct {
	IncidentID       string            `json:"incident_id"`
	Status           IncidentStatus    `json:"status"`
	DiagnosticReport *DiagnosticReport `json:"diagnostic_report"`
}

// AnalyzeErrorResponse - 분석 실패 응답 (incident 는 조회 가능)
type AnalyzeErrorResponse struct {
	Status     string `json:"status"`
	IncidentID string `json:"incident_id,omitempty"`
	Error      string `json:"error"`
}

// IncidentListEnvelope - Incident 목록 API 응답 구조체
type IncidentListEnvelope struct {
	Status string             `json:"status"`
	Data   []IncidentListItem `json:"data"`
}

// IncidentDetailEnvelope - Incident 상세 API 응답 구조체
type IncidentDetailEnvelope struct {
	Status string    `json:"status"`
	Data   *Incident `json:"data"`
}

// IncidentDeleteResponse - Incident 삭제 API 응답 구조체
type IncidentDeleteResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	IncidentID string `json:"incident_id"`
}
