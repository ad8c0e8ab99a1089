package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/interviewer/internal/middleware"
)

// healthCheckTimeout は保存先の疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker は保存先の疎通を確認する。*sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// NewHealthHandler はヘルスチェックのハンドラーを返す。
// 保存先に接続できない場合もメモリ上で動作を続けるため、200で "degraded" を返す。
// checkerがnilの場合は保存先の確認を行わない。
// GET /health
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Storage: "ok"}
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("保存先に接続できません", slog.String("error", err.Error()))
				resp.Status = "degraded"
				resp.Storage = "unavailable"
			}
		}
		middleware.WriteJSON(w, http.StatusOK, resp)
	})
}
