package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/kube-rca/sage/internal/model"
)

const maxListedActions = 2

// Message - 채널로 전달되는 메시지
// 모든 텍스트 필드는 이미 잘린 상태
type Message struct {
	Kind       Kind
	IncidentID string
	Status     model.IncidentStatus

	AlertName    string
	Severity     string
	Namespace    string
	Service      string
	AlertMessage string

	Duration time.Duration
	// Completed: 근본 원인, Failed: 에러 요약
	Summary     string
	Confidence  *float64
	Actions     []string
	MoreActions int

	// 전체 본문 (TextLimit 이하)
	Text string
}

// NewMessage - 이벤트를 채널 공통 메시지로 변환
func NewMessage(ev Event) Message {
	msg := Message{
		Kind:         ev.Kind,
		IncidentID:   ev.IncidentID,
		Status:       ev.Kind.IncidentStatus(),
		AlertName:    ev.Alert.AlertName,
		Severity:     ev.Alert.Severity,
		Namespace:    ev.Alert.Labels["namespace"],
		Service:      ev.Alert.Labels["service"],
		AlertMessage: Truncate(ev.Alert.Message, AlertMessageLimit),
		Duration:     ev.Duration,
	}

	switch ev.Kind {
	case KindCompleted:
		if ev.Report != nil {
			msg.Summary = Truncate(ev.Report.RootCause, RootCauseLimit)
			confidence := ev.Report.ConfidenceScore
			msg.Confidence = &confidence
			actions := ev.Report.RecommendedRemediation.ShortTermActions
			for i, a := range actions {
				if i == maxListedActions {
					break
				}
				msg.Actions = append(msg.Actions, Truncate(a, AlertMessageLimit))
			}
			msg.MoreActions = max(len(actions)-maxListedActions, 0)
		}
	case KindFailed:
		if ev.Err != nil {
			msg.Summary = Truncate(ev.Err.Error(), ErrorLimit)
		}
	}

	msg.Text = Truncate(render(msg), TextLimit)
	return msg
}

func render(m Message) string {
	var b strings.Builder

	switch m.Kind {
	case KindStarted:
		b.WriteString("🚨 Incident analysis started\n")
	case KindCompleted:
		fmt.Fprintf(&b, "✅ Incident analysis completed (%s)\n", formatDuration(m.Duration))
	case KindFailed:
		fmt.Fprintf(&b, "❌ Incident analysis failed (%s)\n", formatDuration(m.Duration))
	}

	fmt.Fprintf(&b, "Incident: %s\n", m.IncidentID)
	fmt.Fprintf(&b, "Alert: [%s] %s\n", m.Severity, m.AlertName)
	if m.Namespace != "" {
		fmt.Fprintf(&b, "Namespace: %s\n", m.Namespace)
	}
	if m.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", m.Service)
	}

	switch m.Kind {
	case KindStarted:
		if m.AlertMessage != "" {
			fmt.Fprintf(&b, "Message: %s\n", m.AlertMessage)
		}
	case KindCompleted:
		fmt.Fprintf(&b, "Root cause: %s\n", m.Summary)
		if m.Confidence != nil {
			fmt.Fprintf(&b, "Confidence: %.0f%%\n", *m.Confidence*100)
		}
		if len(m.Actions) > 0 {
			b.WriteString("Actions:\n")
			for _, a := range m.Actions {
				fmt.Fprintf(&b, "• %s\n", a)
			}
			if m.MoreActions > 0 {
				fmt.Fprintf(&b, "+%d more\n", m.MoreActions)
			}
		}
	case KindFailed:
		fmt.Fprintf(&b, "Error: %s\n", m.Summary)
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatDuration(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}
