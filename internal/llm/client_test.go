package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestOpenAIClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("リクエストのデコードに失敗: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.Temperature != 0.3 {
			t.Errorf("temperature = %v, want 0.3", req.Temperature)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  What is a closure?  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{
		BaseURL:     server.URL + "/v1/",
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.3,
	})

	got, err := c.Complete(context.Background(), "hello", CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete がエラーを返した: %v", err)
	}
	if got != "What is a closure?" {
		t.Errorf("Complete = %q, want %q", got, "What is a closure?")
	}
}

func TestOpenAIClient_Complete_TemperatureOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Temperature != 0.9 {
			t.Errorf("temperature = %v, want 0.9", req.Temperature)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL, Temperature: 0.1})
	temp := 0.9

	if _, err := c.Complete(context.Background(), "p", CompletionOptions{Temperature: &temp}); err != nil {
		t.Fatalf("Complete がエラーを返した: %v", err)
	}
}

func TestOpenAIClient_Complete_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL})

	_, err := c.Complete(context.Background(), "p", CompletionOptions{})
	if err == nil {
		t.Fatal("エラーステータスでエラーが返されるべき")
	}
	if !strings.Contains(buf.String(), "429") {
		t.Errorf("ログにステータスコードが含まれていない: %s", buf.String())
	}
}

func TestOpenAIClient_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL})

	if _, err := c.Complete(context.Background(), "p", CompletionOptions{}); err == nil {
		t.Fatal("候補が空の場合はエラーが返されるべき")
	}
}

func TestOpenAIClient_Complete_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL})

	_, err := c.Complete(context.Background(), "p", CompletionOptions{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want quota exceeded", err)
	}
}

func TestOpenAIClient_Complete_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), ClientConfig{BaseURL: server.URL})

	if _, err := c.Complete(context.Background(), "p", CompletionOptions{}); err == nil {
		t.Fatal("不正なJSONでエラーが返されるべき")
	}
}

func TestMockClient_QuestionAndScoring(t *testing.T) {
	m := NewMockClient()

	q, err := m.Complete(context.Background(), QuestionPrompt("Hard", 5), CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete がエラーを返した: %v", err)
	}
	found := false
	for _, hq := range mockQuestions["Hard"] {
		if q == hq {
			found = true
		}
	}
	if !found {
		t.Errorf("Hard 質問ではない応答: %q", q)
	}

	s, err := m.Complete(context.Background(), ScoringPrompt("AI: Q1\nCandidate: A1"), CompletionOptions{})
	if err != nil {
		t.Fatalf("Complete がエラーを返した: %v", err)
	}
	if !strings.HasPrefix(s, "Score: 48/100\nSummary: ") {
		t.Errorf("スコアリング応答 = %q", s)
	}
}
