package handler

import (
	"net/http"

	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/model"
)

// InterviewHandler は面接の進行操作のHTTPハンドラー。
type InterviewHandler struct {
	sessions SessionProvider
}

// NewInterviewHandler はInterviewHandlerを生成する。
func NewInterviewHandler(sessions SessionProvider) *InterviewHandler {
	return &InterviewHandler{sessions: sessions}
}

// answerRequest は回答送信・下書き保存のリクエストボディ。
type answerRequest struct {
	Answer string `json:"answer"`
}

// Start は確認済みの候補者情報で面接を開始する。1問目を取得してから応答する。
// POST /api/interview/start
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	var details model.CandidateDetails
	if !decodeJSON(w, r, &details) {
		return
	}

	sess := h.sessions.Session(r.Context(), clientID)
	if err := sess.Start(r.Context(), details); err != nil {
		handleServiceError(w, err, sess.Snapshot().Phase)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sess.Snapshot())
}

// Draft はタイマー満了時に自動送信される入力中の回答を保存する。
// PUT /api/interview/draft
func (h *InterviewHandler) Draft(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := h.sessions.Session(r.Context(), clientID)
	if err := sess.SetDraft(req.Answer); err != nil {
		handleServiceError(w, err, sess.Snapshot().Phase)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Answer は回答を送信し、次の質問または採点結果を含む状態を返す。
// 前の処理が完了していない場合は INTERVIEW_BUSY を返す。
// POST /api/interview/answer
func (h *InterviewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := h.sessions.Session(r.Context(), clientID)
	if err := sess.Submit(r.Context(), req.Answer); err != nil {
		handleServiceError(w, err, sess.Snapshot().Phase)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sess.Snapshot())
}
