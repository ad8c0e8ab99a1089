package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, interview, resume, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnsupportedFile   = "UNSUPPORTED_FILE"
	ErrCodeResumeParseFailed = "RESUME_PARSE_FAILED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidPhase      = "INVALID_PHASE"
	ErrCodeInterviewBusy     = "INTERVIEW_BUSY"
	ErrCodeMissingDetails    = "MISSING_DETAILS"
	ErrCodeCandidateNotFound = "CANDIDATE_NOT_FOUND"
	ErrCodeInvalidSort       = "INVALID_SORT"
	ErrCodeNoClient          = "NO_CLIENT"
	ErrCodeCSRFInvalid       = "CSRF_INVALID"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeFileTooLarge      = "FILE_TOO_LARGE"
)

// NewUnsupportedFileError は対応していないファイル形式のエラーを生成する。
func NewUnsupportedFileError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedFile,
		Message:  fmt.Sprintf("対応していないファイル形式です: %s", contentType),
		Category: "resume",
		Action:   "PDFまたはDOCX形式の履歴書をアップロードしてください。",
	}
}

// NewResumeParseFailedError は履歴書の解析失敗エラーを生成する。
func NewResumeParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeResumeParseFailed,
		Message:  "履歴書ファイルの解析に失敗しました。",
		Category: "resume",
		Action:   "ファイルが破損していないか確認し、別のファイルでお試しください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidPhaseError は現在のフェーズでは実行できない操作のエラーを生成する。
func NewInvalidPhaseError(phase Phase) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhase,
		Message:  fmt.Sprintf("現在のフェーズでは実行できない操作です: %s", phase),
		Category: "interview",
		Action:   "画面を再読み込みして最新の状態を確認してください。",
	}
}

// NewInterviewBusyError は質問生成またはスコアリングの処理中に回答が送信された場合のエラーを生成する。
func NewInterviewBusyError() *APIError {
	return &APIError{
		Code:     ErrCodeInterviewBusy,
		Message:  "前の処理が完了していません。",
		Category: "interview",
		Action:   "次の質問が表示されるまでお待ちください。",
	}
}

// NewMissingDetailsError は候補者情報が不足している場合のエラーを生成する。
func NewMissingDetailsError(fields []string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingDetails,
		Message:  fmt.Sprintf("必須項目が入力されていません: %s", strings.Join(fields, ", ")),
		Category: "validation",
		Action:   "氏名・メールアドレス・電話番号をすべて入力してください。",
	}
}

// NewCandidateNotFoundError は候補者レコードが見つからない場合のエラーを生成する。
func NewCandidateNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeCandidateNotFound,
		Message:  fmt.Sprintf("指定された候補者が見つかりません: %s", id),
		Category: "interview",
		Action:   "候補者IDを確認してください。",
	}
}

// NewInvalidSortError は無効なソート指定のエラーを生成する。
func NewInvalidSortError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効なソート指定です: %s", field),
		Category: "validation",
		Action:   "sortには name、finalScore、interviewDate、orderには asc、desc のいずれかを指定してください。",
	}
}

// NewNoClientError はクライアント識別子が取得できない場合のエラーを生成する。
func NewNoClientError() *APIError {
	return &APIError{
		Code:     ErrCodeNoClient,
		Message:  "クライアントを識別できません。",
		Category: "system",
		Action:   "Cookieを有効にして画面を再読み込みしてください。",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証失敗エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "system",
		Action:   "画面を再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はリクエスト数の上限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewFileTooLargeError はアップロードされたファイルが上限を超えた場合のエラーを生成する。
func NewFileTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", limit),
		Category: "resume",
		Action:   "より小さいファイルをアップロードしてください。",
	}
}
