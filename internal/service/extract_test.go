package service

import (
	"errors"
	"testing"
)

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText([]byte("hello world"), MimePlainText)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractTextGoogleDoc(t *testing.T) {
	// Google Docs arrive pre-exported as text.
	got, err := ExtractText([]byte("exported doc body"), MimeGoogleDoc)
	if err != nil {
		t.Fatal(err)
	}
	if got != "exported doc body" {
		t.Errorf("got %q", got)
	}
}

func TestExtractTextInvalidUTF8(t *testing.T) {
	if _, err := ExtractText([]byte{0xff, 0xfe, 0xfd}, MimePlainText); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestExtractTextUnsupportedMime(t *testing.T) {
	_, err := ExtractText([]byte("x"), "image/png")
	if err == nil {
		t.Fatal("expected error")
	}

	var unsupported *ErrUnsupportedMime
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %T, want *ErrUnsupportedMime", err)
	}
	if unsupported.MimeType != "image/png" {
		t.Errorf("mime = %q", unsupported.MimeType)
	}
}

func TestExtractTextBrokenPDF(t *testing.T) {
	if _, err := ExtractText([]byte("not a pdf"), MimePDF); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
