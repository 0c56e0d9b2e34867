package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/sage/internal/model"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postedMessage struct {
	channel     string
	threadTS    string
	attachments []slack.Attachment
}

func newSlackTestServer(t *testing.T) (*slacktest.Server, func() []postedMessage) {
	t.Helper()
	var (
		mu     sync.Mutex
		posted []postedMessage
	)
	srv := slacktest.NewTestServer(func(c slacktest.Customize) {
		c.Handle("/chat.postMessage", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			var atts []slack.Attachment
			_ = json.Unmarshal([]byte(r.FormValue("attachments")), &atts)

			mu.Lock()
			posted = append(posted, postedMessage{
				channel:     r.FormValue("channel"),
				threadTS:    r.FormValue("thread_ts"),
				attachments: atts,
			})
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"channel":"CINC","ts":"1700000000.000100"}`))
		}))
	})
	go srv.Start()
	t.Cleanup(srv.Stop)

	return srv, func() []postedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]postedMessage(nil), posted...)
	}
}

func TestSlackChannelThreadsTerminalEvents(t *testing.T) {
	srv, posted := newSlackTestServer(t)
	api := slack.New("xoxb-test", slack.OptionAPIURL(srv.GetAPIURL()))
	ch := NewSlackChannel(api, "CINC", "https://rca.example.com", 0)
	defer ch.Close()

	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, NewMessage(Started("inc-1", testAlert()))))

	report := model.DiagnosticReport{RootCause: "**OOM** kill", ConfidenceScore: 0.9}
	require.NoError(t, ch.Send(ctx, NewMessage(Completed("inc-1", testAlert(), 2*time.Second, report))))

	msgs := posted()
	require.Len(t, msgs, 2)

	assert.Equal(t, "CINC", msgs[0].channel)
	assert.Empty(t, msgs[0].threadTS)
	require.Len(t, msgs[0].attachments, 1)
	assert.Equal(t, "#dc3545", msgs[0].attachments[0].Color)
	assert.Contains(t, msgs[0].attachments[0].Title, "PodCrashLoop")

	assert.Equal(t, "1700000000.000100", msgs[1].threadTS)
	require.Len(t, msgs[1].attachments, 1)
	att := msgs[1].attachments[0]
	assert.Equal(t, "#36a64f", att.Color)
	assert.Contains(t, att.Text, "*OOM* kill")

	var hasLink bool
	for _, f := range att.Fields {
		if f.Title == "Incident" {
			hasLink = true
			assert.Contains(t, f.Value, "https://rca.example.com/incidents/inc-1")
		}
	}
	assert.True(t, hasLink)

	// 종료 이벤트 후 스레드 정보는 삭제됨
	assert.Nil(t, ch.threads.Get("inc-1"))
}

func TestSlackChannelAPIError(t *testing.T) {
	srv := slacktest.NewTestServer(func(c slacktest.Customize) {
		c.Handle("/chat.postMessage", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
		}))
	})
	go srv.Start()
	defer srv.Stop()

	api := slack.New("xoxb-test", slack.OptionAPIURL(srv.GetAPIURL()))
	ch := NewSlackChannel(api, "CNOPE", "", 0)
	defer ch.Close()

	err := ch.Send(context.Background(), NewMessage(Started("inc-1", testAlert())))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
