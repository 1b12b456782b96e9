package service

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Source MIME types we know how to turn into plain text.
const (
	MimePDF       = "application/pdf"
	MimePlainText = "text/plain"
	MimeGoogleDoc = "application/vnd.google-apps.document"
)

// ErrUnsupportedMime wraps the MIME type of a file we cannot extract.
type ErrUnsupportedMime struct {
	MimeType string
}

func (e *ErrUnsupportedMime) Error() string {
	return fmt.Sprintf("unsupported mime type: %s", e.MimeType)
}

// ExtractText converts raw file bytes into plain text based on the MIME
// type. Google Docs arrive already exported as text by the Drive client.
func ExtractText(data []byte, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		return extractPDFText(data)
	case MimePlainText, MimeGoogleDoc:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text content is not valid UTF-8")
		}
		return string(data), nil
	default:
		return "", &ErrUnsupportedMime{MimeType: mimeType}
	}
}

// extractPDFText extracts plain text from every readable page. Pages that
// fail to decode are skipped rather than failing the document.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("no extractable text in pdf")
	}

	return b.String(), nil
}
