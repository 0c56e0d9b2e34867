package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var stripPolicy = bluemonday.StrictPolicy()

// Document - 텍스트가 추출된 업로드 문서
type Document struct {
	Filename string
	DocType  string
	Text     string
}

// ParseDocument - 확장자에 따라 본문 텍스트 추출 (.txt, .md, .json)
func ParseDocument(filename string, content []byte) (Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	doc := Document{Filename: filename, DocType: strings.TrimPrefix(ext, ".")}

	switch ext {
	case ".txt", "":
		doc.DocType = "txt"
		doc.Text = string(bytes.ToValidUTF8(content, nil))
	case ".md", ".markdown":
		doc.DocType = "md"
		doc.Text = markdownToText(content)
	case ".json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, content, "", "  "); err != nil {
			return Document{}, fmt.Errorf("invalid json document %s: %w", filename, err)
		}
		doc.Text = buf.String()
	default:
		return Document{}, fmt.Errorf("%w: %s (supported: .txt, .md, .json)", ErrUnsupportedFormat, ext)
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return Document{}, fmt.Errorf("document %s has no text", filename)
	}
	return doc, nil
}

// markdown -> HTML -> 태그 제거
func markdownToText(content []byte) string {
	rendered := blackfriday.Run(bytes.ToValidUTF8(content, nil))
	return html.UnescapeString(stripPolicy.Sanitize(string(rendered)))
}
