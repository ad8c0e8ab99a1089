package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/model"
	"github.com/hitoshi/interviewer/internal/resume"
)

// resumeFormField は履歴書ファイルのmultipartフィールド名。
const resumeFormField = "file"

// ResumeParser は履歴書ファイルから候補者情報を抽出する。
type ResumeParser func(data []byte, contentType, filename string) (*resume.Result, error)

// ResumeHandler は履歴書アップロードのHTTPハンドラー。
// 抽出結果を返すだけで、セッションは変更しない。
type ResumeHandler struct {
	parse   ResumeParser
	maxSize int64
	logger  *slog.Logger
}

// NewResumeHandler はResumeHandlerを生成する。parseがnilの場合は resume.Parse を使う。
func NewResumeHandler(parse ResumeParser, maxSize int64, logger *slog.Logger) *ResumeHandler {
	if parse == nil {
		parse = resume.Parse
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeHandler{parse: parse, maxSize: maxSize, logger: logger}
}

// Upload はアップロードされた履歴書から氏名・メールアドレス・電話番号を抽出する。
// 抽出できなかった項目は missing に列挙され、エラーにはならない。
// POST /api/resume
func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClientID(w, r); !ok {
		return
	}

	// multipartのヘッダー分の余裕を持たせる
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)
	file, header, err := r.FormFile(resumeFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(h.maxSize))
			return
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(h.maxSize))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		handleServiceError(w, err, "")
		return
	}
	if int64(len(data)) > h.maxSize {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(h.maxSize))
		return
	}

	result, err := h.parse(data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		h.logger.Warn("履歴書の解析に失敗しました",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err, "")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
