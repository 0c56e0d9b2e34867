package knowledge

import "strings"

// Chunk - 검색 품질을 위해 텍스트를 겹치는 조각으로 분할
//
// 조각 끝은 가능하면 마지막 '.' 또는 줄바꿈에서 자르며,
// 그 위치가 조각의 절반 이후일 때만 적용합니다. 길이 단위는 rune.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{strings.TrimSpace(text)}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			if bp := lastBreak(runes[start:end]); bp > size/2 {
				end = start + bp + 1
			}
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end >= len(runes) {
			break
		}
		// overlap 이 진행량보다 크면 제자리 반복이 되므로 최소 1 rune 전진
		start = max(end-overlap, start+1)
	}
	return chunks
}

func lastBreak(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == '.' || rs[i] == '\n' {
			return i
		}
	}
	return -1
}
