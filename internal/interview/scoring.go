package interview

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hitoshi/interviewer/internal/model"
)

var (
	// "Score: 87/100" のほか、"**Score:** 87 / 100" や小文字の表記も受け付ける。
	scorePattern = regexp.MustCompile(`(?i)score[*:\s]*(\d+)\s*/\s*100`)
	// 行頭の "Summary:" と "**Summary:**" だけを見出しとみなす。本文中の "In summary:" では分けない。
	summaryPattern = regexp.MustCompile(`(?im)^[ \t]*\**summary\**:\**`)
)

// ParseScoreResponse は採点結果のテキストからスコアと要約を取り出す。
// スコアは "Score: <n>/100" の数値（見つからなければ0）を0〜100に丸めたもの。
// 要約は "Summary:" 以降をトリムしたもので、見つからないか空なら元のテキスト全体とする。
func ParseScoreResponse(text string) model.ScoreResult {
	return model.ScoreResult{
		FinalScore: parseScore(text),
		AISummary:  parseSummary(text),
	}
}

func parseScore(text string) int {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// 桁あふれする値は上限とみなす
		return 100
	}
	return max(0, min(n, 100))
}

func parseSummary(text string) string {
	// 2つ目以降の見出しは要約に含めない
	parts := summaryPattern.Split(text, 3)
	if len(parts) < 2 {
		return text
	}
	if trimmed := strings.TrimSpace(parts[1]); trimmed != "" {
		return trimmed
	}
	return text
}
