package notify

// 채널 메시지 크기 제한 때문에 전송 전에 자유 텍스트를 자름 (rune 기준)
const (
	AlertMessageLimit = 150
	RootCauseLimit    = 150
	ErrorLimit        = 200
	TextLimit         = 3000

	TruncationMarker = "…(truncated)"
)

// Truncate - limit 을 넘으면 끝에 TruncationMarker 를 붙여 limit 길이로 자름
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	marker := []rune(TruncationMarker)
	if limit <= len(marker) {
		return string(marker[:max(limit, 0)])
	}
	return string(r[:limit-len(marker)]) + TruncationMarker
}
