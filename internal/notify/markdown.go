package notify

import (
	"regexp"
	"strings"
)

var (
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingPattern = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
)

// toSlackMarkdown - LLM 이 만든 일반 Markdown 을 Slack mrkdwn 으로 변환
// 코드 블록과 인라인 코드 안의 내용은 그대로 유지
func toSlackMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			lines[i] = "*" + strings.TrimSpace(m[1]) + "*"
			continue
		}
		lines[i] = convertInline(line)
	}
	return strings.Join(lines, "\n")
}

// convertInline - 백틱 밖의 **bold** 만 *bold* 로 변환
func convertInline(line string) string {
	parts := strings.Split(line, "`")
	for i := range parts {
		// 짝수 번째 조각이 코드 밖
		if i%2 == 0 {
			parts[i] = boldPattern.ReplaceAllString(parts[i], "*$1*")
		}
	}
	return strings.Join(parts, "`")
}
