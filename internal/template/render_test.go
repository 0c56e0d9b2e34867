package template

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBody(t *testing.T) {
	confidence := 0.85
	d := Data{
		IncidentID:     "inc-1",
		IncidentStatus: "completed",
		EventKind:      "completed",
		Duration:       1500 * time.Millisecond,
		Summary:        "memory limit too low",
		Confidence:     &confidence,
		AlertName:      "PodCrashLoop",
		AlertSeverity:  "critical",
		AlertNamespace: "prod",
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "incident and event",
			body: "{{incident.id}} {{incident.status}} {{event.kind}} {{event.duration}}",
			want: "inc-1 completed completed 1.5s",
		},
		{
			name: "alert fields",
			body: "[{{alert.severity}}] {{alert.name}} in {{alert.namespace}}",
			want: "[critical] PodCrashLoop in prod",
		},
		{
			name: "missing values are empty",
			body: "service={{alert.service}};",
			want: "service=;",
		},
		{
			name: "confidence is a number",
			body: `{"confidence": {{event.confidence}}}`,
			want: `{"confidence": 0.85}`,
		},
		{
			name: "unknown variables are kept",
			body: "{{alert.fingerprint}}",
			want: "{{alert.fingerprint}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderBody(tt.body, d, false))
		})
	}
}

func TestRenderBodyEscapesJSON(t *testing.T) {
	d := Data{Summary: "line1\n\"quoted\""}
	body := `{"text": "{{event.summary}}"}`

	out := RenderBody(body, d, true)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "line1\n\"quoted\"", parsed["text"])

	// 이스케이프하지 않으면 깨진 JSON
	assert.Error(t, json.Unmarshal([]byte(RenderBody(body, d, false)), &parsed))
}
