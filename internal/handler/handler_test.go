package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/model"
)

// --- モック定義 ---

// mockSession はInterviewSessionのモック実装。
type mockSession struct {
	startFn      func(ctx context.Context, details model.CandidateDetails) error
	submitFn     func(ctx context.Context, answer string) error
	setDraftFn   func(text string) error
	loadFn       func() interview.Snapshot
	resumeFn     func(ctx context.Context) interview.Snapshot
	startOverFn  func() interview.Snapshot
	snapshotFn   func() interview.Snapshot
	candidatesFn func() []model.Candidate
}

func (m *mockSession) Start(ctx context.Context, details model.CandidateDetails) error {
	if m.startFn != nil {
		return m.startFn(ctx, details)
	}
	return nil
}

func (m *mockSession) Submit(ctx context.Context, answer string) error {
	if m.submitFn != nil {
		return m.submitFn(ctx, answer)
	}
	return nil
}

func (m *mockSession) SetDraft(text string) error {
	if m.setDraftFn != nil {
		return m.setDraftFn(text)
	}
	return nil
}

func (m *mockSession) Load() interview.Snapshot {
	if m.loadFn != nil {
		return m.loadFn()
	}
	return interview.Snapshot{}
}

func (m *mockSession) Resume(ctx context.Context) interview.Snapshot {
	if m.resumeFn != nil {
		return m.resumeFn(ctx)
	}
	return interview.Snapshot{}
}

func (m *mockSession) StartOver() interview.Snapshot {
	if m.startOverFn != nil {
		return m.startOverFn()
	}
	return interview.Snapshot{}
}

func (m *mockSession) Snapshot() interview.Snapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return interview.Snapshot{}
}

func (m *mockSession) Candidates() []model.Candidate {
	if m.candidatesFn != nil {
		return m.candidatesFn()
	}
	return nil
}

// mockProvider はSessionProviderのモック実装。要求されたクライアントIDを記録する。
type mockProvider struct {
	session   InterviewSession
	clientIDs []string
}

func (m *mockProvider) Session(ctx context.Context, clientID string) InterviewSession {
	m.clientIDs = append(m.clientIDs, clientID)
	return m.session
}

// --- テストヘルパー ---

const testClientID = "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b"

// withClientID はテスト用にリクエストコンテキストにクライアントIDを注入するヘルパー。
func withClientID(r *http.Request) *http.Request {
	return r.WithContext(middleware.ContextWithClientID(r.Context(), testClientID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディをvにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func inProgressSnapshot(n int) interview.Snapshot {
	return interview.Snapshot{
		Phase:                 model.PhaseInProgress,
		QuestionNumber:        n,
		DisplayQuestionNumber: n,
		TotalQuestions:        model.TotalQuestions,
		Messages:              []model.Message{},
	}
}
