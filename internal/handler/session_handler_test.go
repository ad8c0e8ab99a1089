package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/model"
)

func TestSessionHandler_Load_ReturnsRecoveryPrompt(t *testing.T) {
	sess := &mockSession{
		loadFn: func() interview.Snapshot {
			snap := inProgressSnapshot(3)
			snap.RecoveryPrompt = true
			return snap
		},
	}
	provider := &mockProvider{session: sess}
	h := NewSessionHandler(provider)

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/session/load", nil))
	w := httptest.NewRecorder()
	h.Load(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result map[string]any
	decodeBody(t, w, &result)
	if result["recoveryPrompt"] != true {
		t.Errorf("recoveryPrompt = %v, want true", result["recoveryPrompt"])
	}
	if result["phase"] != string(model.PhaseInProgress) {
		t.Errorf("phase = %v", result["phase"])
	}
	if len(provider.clientIDs) != 1 || provider.clientIDs[0] != testClientID {
		t.Errorf("clientIDs = %v", provider.clientIDs)
	}
}

func TestSessionHandler_NoClientID(t *testing.T) {
	h := NewSessionHandler(&mockProvider{session: &mockSession{}})

	handlers := map[string]http.HandlerFunc{
		"load":       h.Load,
		"get":        h.Get,
		"resume":     h.Resume,
		"start-over": h.StartOver,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodPost, "/api/session/"+name, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeNoClient {
				t.Errorf("code = %q, want %q", body["code"], model.ErrCodeNoClient)
			}
		})
	}
}

func TestSessionHandler_Resume(t *testing.T) {
	called := false
	sess := &mockSession{
		resumeFn: func(ctx context.Context) interview.Snapshot {
			called = true
			return inProgressSnapshot(2)
		},
	}
	h := NewSessionHandler(&mockProvider{session: sess})

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/session/resume", nil))
	w := httptest.NewRecorder()
	h.Resume(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !called {
		t.Error("Resume が呼ばれていない")
	}
	var result interview.Snapshot
	decodeBody(t, w, &result)
	if result.QuestionNumber != 2 || result.RecoveryPrompt {
		t.Errorf("snapshot = %+v", result)
	}
}

func TestSessionHandler_StartOver_RequestsReload(t *testing.T) {
	sess := &mockSession{
		startOverFn: func() interview.Snapshot {
			return interview.Snapshot{Phase: model.PhaseAwaitingResume, Messages: []model.Message{}}
		},
	}
	h := NewSessionHandler(&mockProvider{session: sess})

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/session/start-over", nil))
	w := httptest.NewRecorder()
	h.StartOver(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result map[string]any
	decodeBody(t, w, &result)
	if result["reload"] != true {
		t.Errorf("reload = %v, want true", result["reload"])
	}
	if result["phase"] != string(model.PhaseAwaitingResume) {
		t.Errorf("phase = %v", result["phase"])
	}
}

func TestSessionHandler_Get(t *testing.T) {
	sess := &mockSession{
		snapshotFn: func() interview.Snapshot {
			snap := inProgressSnapshot(4)
			snap.Timer = interview.TimerView{TimeLimit: 60, SecondsRemaining: 42, Running: true}
			return snap
		},
	}
	h := NewSessionHandler(&mockProvider{session: sess})

	req := withClientID(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	w := httptest.NewRecorder()
	h.Get(w, req)

	var result interview.Snapshot
	decodeBody(t, w, &result)
	if result.Timer.SecondsRemaining != 42 || result.Timer.TimeLimit != 60 {
		t.Errorf("timer = %+v", result.Timer)
	}
}
