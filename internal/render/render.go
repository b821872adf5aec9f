// Package render turns generated letter text into downloadable documents.
// Rich formats (docx, pdf) belong to an external collaborator; the built-in
// implementation ships plain text.
package render

import (
	"errors"
	"fmt"
	"strings"
)

// Renderer produces one document from a letter.
type Renderer interface {
	// Render returns the document bytes, a suggested filename and the MIME
	// content type.
	Render(text string, n int) (data []byte, filename, contentType string, err error)
}

// PlainText renders letters as UTF-8 .txt files.
type PlainText struct{}

func (PlainText) Render(text string, n int) ([]byte, string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", "", errors.New("render: empty letter")
	}
	return []byte(text + "\n"), fmt.Sprintf("cover_letter_%d.txt", n), "text/plain; charset=utf-8", nil
}
