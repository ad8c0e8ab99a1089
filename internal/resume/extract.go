// Package resume は履歴書ファイル（PDF / DOCX）から候補者の連絡先を抽出する。
//
// 抽出できなかった項目はエラーではなく不足項目として報告し、
// 候補者自身に入力を求める。セッションの状態には一切触れない。
package resume

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hitoshi/interviewer/internal/model"
)

// 受け付けるMIMEタイプ。
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	namePattern  = regexp.MustCompile(`^([A-Z][a-z]+(?: [A-Z][a-z]+)?)`)
)

// Result は履歴書の解析結果。
type Result struct {
	Details model.CandidateDetails `json:"details"`
	Missing []string               `json:"missing"`
}

// Format は履歴書ファイルの形式。
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
)

// DetectFormat はContent-Typeとファイル名から形式を判定する。
// Content-Typeが判定に使えない場合（application/octet-stream 等）は拡張子で判定する。
func DetectFormat(contentType, filename string) Format {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch mediaType {
	case MIMETypePDF:
		return FormatPDF
	case MIMETypeDOCX:
		return FormatDOCX
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	}
	return FormatUnknown
}

// Parse は履歴書ファイルの内容から候補者情報を抽出する。
// 対応していない形式の場合は UNSUPPORTED_FILE、
// 内容が壊れている場合は RESUME_PARSE_FAILED の APIError を返す。
func Parse(data []byte, contentType, filename string) (*Result, error) {
	var (
		text string
		err  error
	)
	switch DetectFormat(contentType, filename) {
	case FormatPDF:
		text, err = extractPDFText(bytes.NewReader(data), int64(len(data)))
	case FormatDOCX:
		text, err = extractDOCXText(bytes.NewReader(data), int64(len(data)))
	default:
		if contentType == "" {
			contentType = filepath.Ext(filename)
		}
		return nil, model.NewUnsupportedFileError(contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.NewResumeParseFailedError(), err)
	}

	details := ExtractDetails(text)
	return &Result{
		Details: details,
		Missing: missingOrEmpty(details),
	}, nil
}

// ExtractDetails は抽出済みテキストから氏名・メールアドレス・電話番号を取り出す。
// 氏名は最初の空でない行の先頭にある「大文字始まりの単語1〜2個」とする。
func ExtractDetails(text string) model.CandidateDetails {
	var d model.CandidateDetails
	d.Email = emailPattern.FindString(text)
	d.Phone = strings.TrimSpace(phonePattern.FindString(text))

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := namePattern.FindStringSubmatch(line); m != nil {
			d.Name = m[1]
		}
		break
	}
	return d
}

func missingOrEmpty(d model.CandidateDetails) []string {
	missing := d.MissingFields()
	if missing == nil {
		return []string{}
	}
	return missing
}
