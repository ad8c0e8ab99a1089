package resume

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// documentPart はDOCX内の本文XMLのパス。
const documentPart = "word/document.xml"

// maxDocumentSize は本文XMLの展開後サイズの上限。
const maxDocumentSize = 32 << 20

// extractDOCXText はDOCXの本文からテキストを取り出す。
// 段落（w:p）ごとに1行とし、段落内のテキストラン（w:t）とタブ（w:tab）を連結する。
func extractDOCXText(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("DOCXアーカイブの読み込みに失敗しました: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("DOCXに本文（word/document.xml）が含まれていません")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("DOCX本文のオープンに失敗しました: %w", err)
	}
	defer rc.Close()

	return readDocumentXML(io.LimitReader(rc, maxDocumentSize))
}

// readDocumentXML はWordprocessingMLを走査してテキストを組み立てる。
func readDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("DOCX本文のXML解析に失敗しました: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteString("\t")
			case "br":
				line.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, line.String())
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n"), nil
}
