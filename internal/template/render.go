// Package template 은 사용자 웹훅 body 템플릿을 렌더링한다.
//
// 지원하는 변수 형식:
//
//	{{incident.id}}, {{incident.status}}
//
//	{{event.kind}}, {{event.duration}}, {{event.summary}},
//	{{event.confidence}}, {{event.text}}
//
//	{{alert.name}}, {{alert.severity}}, {{alert.namespace}},
//	{{alert.service}}, {{alert.message}}
package template

import (
	"encoding/json"
	"strings"
	"time"
)

// Data - 템플릿 렌더링에 사용할 값 (이미 잘린 텍스트)
type Data struct {
	IncidentID     string
	IncidentStatus string

	EventKind  string
	Duration   time.Duration
	Summary    string
	Confidence *float64
	Text       string

	AlertName      string
	AlertSeverity  string
	AlertNamespace string
	AlertService   string
	AlertMessage   string
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// jsonEscape 가 true 면 값을 JSON 문자열 안에 넣을 수 있도록 이스케이프합니다.
// 값이 없는 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, d Data, jsonEscape bool) string {
	esc := func(s string) string { return s }
	if jsonEscape {
		esc = escapeJSON
	}

	duration := ""
	if d.Duration > 0 {
		duration = d.Duration.Round(time.Millisecond).String()
	}
	confidence := ""
	if d.Confidence != nil {
		b, _ := json.Marshal(*d.Confidence)
		confidence = string(b)
	}

	pairs := []string{
		"{{incident.id}}", esc(d.IncidentID),
		"{{incident.status}}", esc(d.IncidentStatus),

		"{{event.kind}}", esc(d.EventKind),
		"{{event.duration}}", esc(duration),
		"{{event.summary}}", esc(d.Summary),
		"{{event.confidence}}", confidence,
		"{{event.text}}", esc(d.Text),

		"{{alert.name}}", esc(d.AlertName),
		"{{alert.severity}}", esc(d.AlertSeverity),
		"{{alert.namespace}}", esc(d.AlertNamespace),
		"{{alert.service}}", esc(d.AlertService),
		"{{alert.message}}", esc(d.AlertMessage),
	}

	return strings.NewReplacer(pairs...).Replace(body)
}

// escapeJSON - 따옴표 없이 JSON 문자열 내용만 반환
func escapeJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b[1 : len(b)-1])
}
