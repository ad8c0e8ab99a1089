package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/model"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error, phase model.Phase) {
	switch {
	case errors.Is(err, interview.ErrBusy):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewInterviewBusyError())
		return
	case errors.Is(err, interview.ErrInvalidPhase):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewInvalidPhaseError(phase))
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingDetails, model.ErrCodeInvalidSort, model.ErrCodeNoClient:
		return http.StatusBadRequest
	case model.ErrCodeInvalidPhase, model.ErrCodeInterviewBusy:
		return http.StatusConflict
	case model.ErrCodeCandidateNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnsupportedFile:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeResumeParseFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// requireClientID はコンテキストからクライアントIDを取り出す。
// 取得できない場合は NO_CLIENT を書き込み、falseを返す。
func requireClientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewNoClientError())
		return "", false
	}
	return clientID, true
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗した場合は INVALID_REQUEST を書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// maxJSONBodySize はJSONリクエストボディの上限。
const maxJSONBodySize = 1 << 20
