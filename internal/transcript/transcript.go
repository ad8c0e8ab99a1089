// Package transcript は面接メッセージ列から質問と回答の組を組み立てる。
// 組み立てた結果はスコアリング依頼文とアーカイブ用Q&Aの両方に使われる。
package transcript

import (
	"strings"

	"github.com/hitoshi/interviewer/internal/model"
)

// Build はメッセージ列を先頭から走査し、各AIメッセージと
// その後に最初に現れる候補者メッセージを組にして返す。
// 挨拶メッセージ（IntroMessageID）は質問として扱わない。
// 後続の候補者メッセージがないAIメッセージは結果に含めない。
func Build(messages []model.Message) []model.QA {
	pairs := []model.QA{}
	for i, msg := range messages {
		if !msg.IsAI || msg.ID == model.IntroMessageID {
			continue
		}
		for _, next := range messages[i+1:] {
			if !next.IsAI {
				pairs = append(pairs, model.QA{
					Question: msg.Content,
					Answer:   next.Content,
				})
				break
			}
		}
	}
	return pairs
}

// Render はQ&Aの組を時系列順の "AI: <質問>" / "Candidate: <回答>" 行に整形する。
func Render(pairs []model.QA) string {
	var b strings.Builder
	for i, qa := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("AI: ")
		b.WriteString(qa.Question)
		b.WriteString("\nCandidate: ")
		b.WriteString(qa.Answer)
	}
	return b.String()
}
