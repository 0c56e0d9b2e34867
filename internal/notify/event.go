// Package notify 는 incident 분석 수명주기 이벤트(시작, 완료, 실패)를 외부 채널로 전송한다.
//
// 전송은 항상 백그라운드에서 수행되며 실패는 로그와 지표로만 남긴다.
// 분석 파이프라인으로 에러를 돌려주지 않는다.
package notify

import (
	"time"

	"github.com/kube-rca/sage/internal/model"
)

type Kind string

const (
	KindStarted   Kind = "started"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// Event - 수명주기 이벤트
// Completed 는 Report, Failed 는 Err 를 가짐
type Event struct {
	Kind       Kind
	IncidentID string
	Alert      model.AlertInput
	Duration   time.Duration
	Report     *model.DiagnosticReport
	Err        error
}

func Started(incidentID string, alert model.AlertInput) Event {
	return Event{Kind: KindStarted, IncidentID: incidentID, Alert: alert}
}

func Completed(incidentID string, alert model.AlertInput, d time.Duration, report model.DiagnosticReport) Event {
	return Event{Kind: KindCompleted, IncidentID: incidentID, Alert: alert, Duration: d, Report: &report}
}

func Failed(incidentID string, alert model.AlertInput, d time.Duration, err error) Event {
	return Event{Kind: KindFailed, IncidentID: incidentID, Alert: alert, Duration: d, Err: err}
}

// IncidentStatus - 이벤트 시점의 incident 상태
func (k Kind) IncidentStatus() model.IncidentStatus {
	switch k {
	case KindCompleted:
		return model.StatusCompleted
	case KindFailed:
		return model.StatusFailed
	}
	return model.StatusPending
}
