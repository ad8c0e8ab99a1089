package handler

import (
	"net/http"

	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/middleware"
)

// SessionHandler はページ読み込みと復旧確認のHTTPハンドラー。
type SessionHandler struct {
	sessions SessionProvider
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(sessions SessionProvider) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// startOverResponse はやり直し選択時のレスポンス。
// reloadがtrueの場合、UIは画面全体を再読み込みする。
type startOverResponse struct {
	interview.Snapshot
	Reload bool `json:"reload"`
}

// Load はページ読み込み時の状態を返す。
// 進行中のセッションが復元された場合は recoveryPrompt が true になる。
// POST /api/session/load
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	snap := h.sessions.Session(r.Context(), clientID).Load()
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// Get は現在の状態を返す。
// GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	snap := h.sessions.Session(r.Context(), clientID).Snapshot()
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// Resume は中断した面接を再開する。
// POST /api/session/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	snap := h.sessions.Session(r.Context(), clientID).Resume(r.Context())
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// StartOver はセッションを初期状態に戻す。候補者アーカイブは残る。
// POST /api/session/start-over
func (h *SessionHandler) StartOver(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	snap := h.sessions.Session(r.Context(), clientID).StartOver()
	middleware.WriteJSON(w, http.StatusOK, startOverResponse{Snapshot: snap, Reload: true})
}
