package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/interviewer/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.HTTPStatusRecorder
	CookieConfig      middleware.CookieConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 面接セッション
	Sessions SessionProvider

	// 履歴書
	ResumeParser  ResumeParser
	ResumeMaxSize int64

	// 監視
	HealthHandler  http.Handler
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → ClientID → Logging → RateLimit(General)
//
// /api 配下の状態変更リクエストにはさらにCSRF検証を適用し、
// 回答送信には回答専用のレート制限を追加する。
// /health と /metrics はクライアント識別の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// --- 監視用のルート ---
	if deps.HealthHandler != nil {
		r.Method(http.MethodGet, "/health", deps.HealthHandler)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	sessionHandler := NewSessionHandler(deps.Sessions)
	interviewHandler := NewInterviewHandler(deps.Sessions)
	candidateHandler := NewCandidateHandler(deps.Sessions)
	resumeHandler := NewResumeHandler(deps.ResumeParser, deps.ResumeMaxSize, logger)

	// --- クライアント単位のルート ---
	// ミドルウェアスタック: ClientID → Logging → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewClientIDMiddleware(deps.CookieConfig))
		r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// CSRFトークン取得
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CookieConfig))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CookieConfig))

			// セッション
			r.Route("/api/session", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/load", sessionHandler.Load)
				r.Post("/resume", sessionHandler.Resume)
				r.Post("/start-over", sessionHandler.StartOver)
			})

			// 履歴書の取り込み
			r.Post("/api/resume", resumeHandler.Upload)

			// 面接の進行
			r.Route("/api/interview", func(r chi.Router) {
				r.Post("/start", interviewHandler.Start)
				r.Put("/draft", interviewHandler.Draft)
				// POST /api/interview/answer - 回答送信（回答専用レート制限を追加）
				r.With(deps.RateLimiter.SubmitMiddleware()).Post("/answer", interviewHandler.Answer)
			})

			// ダッシュボード
			r.Route("/api/candidates", func(r chi.Router) {
				r.Get("/", candidateHandler.List)
				r.Get("/{id}", candidateHandler.Get)
			})
		})
	})

	return r
}
