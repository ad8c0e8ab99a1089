package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// mockQuestions は難易度ごとの定型質問。
var mockQuestions = map[string][]string{
	"Easy": {
		"What is the difference between let, const and var in JavaScript?",
		"How does the virtual DOM work in React?",
	},
	"Medium": {
		"How would you structure error handling in an Express.js REST API?",
		"Explain how React's useEffect cleanup works and when it runs.",
	},
	"Hard": {
		"Design a rate limiter for a Node.js API that runs on several instances.",
		"How would you diagnose and fix a memory leak in a long-running Node.js service?",
	},
}

// MockClient はAPIキーなしで動作確認するための決定的なCompleter。
// 質問生成プロンプトには定型質問を、スコアリングプロンプトには固定の評価を返す。
type MockClient struct {
	calls atomic.Int64
}

// NewMockClient はMockClientを生成する。
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete はプロンプトの種類に応じた定型応答を返す。
func (m *MockClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := m.calls.Add(1)

	if strings.Contains(prompt, "Transcript:") {
		answered := strings.Count(prompt, "Candidate: ")
		score := 40 + answered*8
		if score > 100 {
			score = 100
		}
		return fmt.Sprintf("Score: %d/100\nSummary: The candidate answered %d questions. Answers were generally clear. More depth on system design would strengthen the profile.", score, answered), nil
	}

	for _, level := range []string{"Hard", "Medium", "Easy"} {
		if strings.Contains(prompt, "one "+level+" interview question") {
			qs := mockQuestions[level]
			return qs[int(n)%len(qs)], nil
		}
	}
	return "Tell me about a project you are proud of.", nil
}

var _ Completer = (*MockClient)(nil)
