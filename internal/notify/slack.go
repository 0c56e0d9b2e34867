// Slack 알림 채널
//
// 설정:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//   - SLACK_DASHBOARD_URL: incident 상세 페이지 링크 (선택)
//   - SLACK_RATE_PER_MINUTE: 분당 최대 전송 수 (0 이면 제한 없음)
//
// 시작 알림의 thread_ts 를 incident_id 로 기억해 두고
// 완료/실패 알림은 같은 스레드에 답글로 전송

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

const threadTTL = 24 * time.Hour

type SlackChannel struct {
	api          *slack.Client
	channelID    string
	dashboardURL string
	limiter      *rate.Limiter

	// incident_id -> thread_ts
	threads *ttlcache.Cache[string, string]
}

func NewSlackChannel(api *slack.Client, channelID, dashboardURL string, ratePerMinute int) *SlackChannel {
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}

	threads := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](threadTTL),
	)
	go threads.Start()

	return &SlackChannel{
		api:          api,
		channelID:    channelID,
		dashboardURL: dashboardURL,
		limiter:      rate.NewLimiter(limit, 1),
		threads:      threads,
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

// Close - thread_ts 캐시 정리 고루틴 종료
func (s *SlackChannel) Close() {
	s.threads.Stop()
}

func (s *SlackChannel) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limit: %w", err)
	}

	opts := []slack.MsgOption{
		slack.MsgOptionAttachments(s.attachment(msg)),
	}
	if msg.Kind != KindStarted {
		if item := s.threads.Get(msg.IncidentID); item != nil {
			opts = append(opts, slack.MsgOptionTS(item.Value()))
		}
	}

	_, ts, err := s.api.PostMessageContext(ctx, s.channelID, opts...)
	if err != nil {
		return fmt.Errorf("slack API error: %w", err)
	}

	switch msg.Kind {
	case KindStarted:
		if ts != "" {
			s.threads.Set(msg.IncidentID, ts, ttlcache.DefaultTTL)
		}
	default:
		// 종료 이벤트 이후로는 스레드가 필요 없음
		s.threads.Delete(msg.IncidentID)
	}
	return nil
}

func (s *SlackChannel) attachment(msg Message) slack.Attachment {
	fields := []slack.AttachmentField{
		{Title: "Severity", Value: msg.Severity, Short: true},
		{Title: "Status", Value: string(msg.Status), Short: true},
	}
	if msg.Namespace != "" {
		fields = append(fields, slack.AttachmentField{Title: "Namespace", Value: msg.Namespace, Short: true})
	}
	if msg.Service != "" {
		fields = append(fields, slack.AttachmentField{Title: "Service", Value: msg.Service, Short: true})
	}
	if msg.Kind != KindStarted {
		fields = append(fields, slack.AttachmentField{Title: "Duration", Value: formatDuration(msg.Duration), Short: true})
	}
	if msg.Confidence != nil {
		fields = append(fields, slack.AttachmentField{Title: "Confidence", Value: fmt.Sprintf("%.0f%%", *msg.Confidence*100), Short: true})
	}
	if s.dashboardURL != "" {
		link := fmt.Sprintf("<%s/incidents/%s|🔍 Incident 대시보드 보러가기>", s.dashboardURL, msg.IncidentID)
		fields = append(fields, slack.AttachmentField{Title: "Incident", Value: link})
	}

	return slack.Attachment{
		Color:      colorByKind(msg.Kind, msg.Severity),
		Title:      titleByKind(msg.Kind, msg.AlertName),
		Text:       toSlackMarkdown(slackBody(msg)),
		Fallback:   msg.Text,
		Fields:     fields,
		Footer:     "sage · " + msg.IncidentID,
		FooterIcon: "https://kubernetes.io/images/favicon.png",
		Ts:         jsonNumber(time.Now().Unix()),
	}
}

func slackBody(msg Message) string {
	switch msg.Kind {
	case KindCompleted:
		body := "*Root cause*\n" + msg.Summary
		for i, a := range msg.Actions {
			if i == 0 {
				body += "\n*Actions*"
			}
			body += "\n• " + a
		}
		if msg.MoreActions > 0 {
			body += fmt.Sprintf("\n+%d more", msg.MoreActions)
		}
		return body
	case KindFailed:
		return "*Error*\n" + msg.Summary
	}
	return msg.AlertMessage
}

// 이벤트 종류와 심각도에 따른 색상
func colorByKind(kind Kind, severity string) string {
	switch kind {
	case KindCompleted:
		return "#36a64f" // green
	case KindFailed:
		return "#6c757d" // gray
	}
	switch severity {
	case "critical":
		return "#dc3545" // red
	case "warning":
		return "#ffc107" // yellow
	default:
		return "#17a2b8" // blue
	}
}

func titleByKind(kind Kind, alertName string) string {
	switch kind {
	case KindCompleted:
		return "✅ 분석 완료: " + alertName
	case KindFailed:
		return "❌ 분석 실패: " + alertName
	}
	return "🔥 분석 시작: " + alertName
}

func jsonNumber(v int64) json.Number {
	return json.Number(strconv.FormatInt(v, 10))
}
