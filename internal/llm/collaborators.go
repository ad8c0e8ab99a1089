package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
)

// 呼び出し種別（メトリクスのラベル）。
const (
	KindQuestion = "question"
	KindScoring  = "scoring"
)

// scoringTemperature はスコアリング時の生成温度。
const scoringTemperature = 0.7

// PlaceholderSummary はスコアリング失敗時に返す文字列。
const PlaceholderSummary = "[Error] Could not generate a summary. Please check the server logs."

// CallRecorder は言語モデル呼び出しの結果を記録する。
type CallRecorder interface {
	RecordLLMCall(kind string, duration time.Duration, err error)
}

// PlaceholderQuestion は質問生成失敗時に返す文字列を組み立てる。
func PlaceholderQuestion(difficulty model.Difficulty, questionNumber int) string {
	return fmt.Sprintf("[Error] This is a placeholder for your %s question #%d. Please check the server logs.", difficulty, questionNumber)
}

// QuestionPrompt は質問生成用のプロンプトを組み立てる。
func QuestionPrompt(difficulty model.Difficulty, questionNumber int) string {
	return fmt.Sprintf(`You are an AI interviewer for a full-stack (React/Node.js) developer role.
Generate one %s interview question. This is question number %d out of %d.
Do not repeat questions. Make the question concise and clear.`, difficulty, questionNumber, model.TotalQuestions)
}

// ScoringPrompt はスコアリング用のプロンプトを組み立てる。
func ScoringPrompt(fullTranscript string) string {
	return `You are an AI hiring assistant. Based on the following interview transcript,
provide a final score out of 100 and a concise 3-sentence summary of the candidate's performance,
highlighting their strengths and weaknesses.
Answer in the format "Score: <n>/100" followed by "Summary: <text>".

Transcript:
` + fullTranscript
}

// Service は質問生成とスコアリングの協調サービス。
// 言語モデルの呼び出しに失敗してもエラーは返さず、明示的なプレースホルダー文字列に縮退する。
// 応答テキストは加工せずそのまま返す。
type Service struct {
	client   Completer
	logger   *slog.Logger
	recorder CallRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(client Completer, logger *slog.Logger, recorder CallRecorder) *Service {
	return &Service{
		client:   client,
		logger:   logger,
		recorder: recorder,
	}
}

// GenerateQuestion は指定難易度・番号の質問文を返す。
func (s *Service) GenerateQuestion(ctx context.Context, difficulty model.Difficulty, questionNumber int) string {
	text, err := s.call(ctx, KindQuestion, QuestionPrompt(difficulty, questionNumber), CompletionOptions{})
	if err != nil {
		s.logger.Error("質問の生成に失敗しました",
			slog.String("error", err.Error()),
			slog.String("difficulty", string(difficulty)),
			slog.Int("question_number", questionNumber),
		)
		return PlaceholderQuestion(difficulty, questionNumber)
	}
	return text
}

// CreateSummary はトランスクリプトに対するスコアと要約を含む応答テキストを返す。
func (s *Service) CreateSummary(ctx context.Context, fullTranscript string) string {
	temperature := scoringTemperature
	text, err := s.call(ctx, KindScoring, ScoringPrompt(fullTranscript), CompletionOptions{Temperature: &temperature})
	if err != nil {
		s.logger.Error("サマリーの生成に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("transcript_length", len(fullTranscript)),
		)
		return PlaceholderSummary
	}
	return text
}

func (s *Service) call(ctx context.Context, kind, prompt string, opts CompletionOptions) (string, error) {
	start := time.Now()
	text, err := s.client.Complete(ctx, prompt, opts)
	if s.recorder != nil {
		s.recorder.RecordLLMCall(kind, time.Since(start), err)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("応答が空です")
	}
	return text, nil
}
