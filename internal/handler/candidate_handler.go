package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/interviewer/internal/dashboard"
	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/model"
)

// CandidateHandler は面接官ダッシュボードのHTTPハンドラー。
type CandidateHandler struct {
	sessions SessionProvider
}

// NewCandidateHandler はCandidateHandlerを生成する。
func NewCandidateHandler(sessions SessionProvider) *CandidateHandler {
	return &CandidateHandler{sessions: sessions}
}

// candidateListResponse は候補者一覧のレスポンス。
// statsは検索条件によらずアーカイブ全体の集計値。
type candidateListResponse struct {
	Candidates []model.Candidate `json:"candidates"`
	Stats      dashboard.Stats   `json:"stats"`
}

// List は候補者一覧と集計値を返す。
// GET /api/candidates?search=&sort=name|finalScore|interviewDate&order=asc|desc
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	q, err := dashboard.ParseQuery(params.Get("search"), params.Get("sort"), params.Get("order"))
	if err != nil {
		handleServiceError(w, err, "")
		return
	}

	all := h.sessions.Session(r.Context(), clientID).Candidates()
	middleware.WriteJSON(w, http.StatusOK, candidateListResponse{
		Candidates: dashboard.Apply(all, q),
		Stats:      dashboard.ComputeStats(all),
	})
}

// Get は候補者1件をQ&A付きで返す。
// GET /api/candidates/{id}
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	c := dashboard.Find(h.sessions.Session(r.Context(), clientID).Candidates(), id)
	if c == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewCandidateNotFoundError(id))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}
