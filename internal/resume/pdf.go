package resume

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText はPDFの各ページのテキストを改行区切りで連結して返す。
func extractPDFText(r io.ReaderAt, size int64) (text string, err error) {
	// 不正なPDFに対してパーサーがpanicすることがある
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDFの解析中にpanicが発生しました: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("PDFの読み込みに失敗しました: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("PDFの%dページ目のテキスト抽出に失敗しました: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}
