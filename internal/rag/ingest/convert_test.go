package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
)

func TestDocTypeFromName(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"notes.txt", commonModels.TXT},
		{"README.md", commonModels.MD},
		{"page.HTML", commonModels.HTML},
		{"letter.rtf", commonModels.RTF},
		{"image.png", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := commonModels.DocTypeFromName(tt.path); got != tt.expected {
			t.Errorf("DocTypeFromName(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestSniffDocType(t *testing.T) {
	if got := sniffDocType([]byte("%PDF-1.7 ...")); got != commonModels.PDF {
		t.Errorf("pdf sniff = %v", got)
	}
	if got := sniffDocType([]byte("<!DOCTYPE html><html><body>x</body></html>")); got != commonModels.HTML {
		t.Errorf("html sniff = %v", got)
	}
	if got := sniffDocType([]byte("just words")); got != commonModels.TXT {
		t.Errorf("text sniff = %v", got)
	}
}

func TestNormalizeText(t *testing.T) {
	in := "Title\r\n\r\n\r\n\r\nline   with\t\tgaps   \n  - nested item\n\n\n"
	want := "Title\n\nline with gaps\n  - nested item"
	if got := normalizeText(in); got != want {
		t.Errorf("normalizeText = %q; want %q", got, want)
	}
}

func TestConvertPassthroughAndErrors(t *testing.T) {
	c := NewConverter(time.Second, time.Second)
	ctx := context.Background()

	text, err := c.Convert(ctx, "a.md", []byte("# Hello\n\nworld  "))
	if err != nil || text != "# Hello\n\nworld" {
		t.Errorf("markdown passthrough = %q, %v", text, err)
	}

	// no extension, sniffed as text
	text, err = c.Convert(ctx, "upload", []byte("plain body"))
	if err != nil || text != "plain body" {
		t.Errorf("sniffed text = %q, %v", text, err)
	}

	if _, err = c.Convert(ctx, "empty.txt", []byte(" \n\t ")); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err = c.Convert(ctx, "image.png", []byte{0x89, 'P', 'N', 'G', 0, 0, 0}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err = c.Convert(ctx, "broken.pdf", []byte("%PDF-not really")); err == nil {
		t.Error("expected error for broken pdf")
	}
}

func TestConvertHTML(t *testing.T) {
	body := strings.Repeat("Retrieval augmented generation keeps answers grounded in tenant documents. ", 12)
	html := "<html><head><title>Grounding</title></head><body><nav>menu</nav><article><h1>Grounding</h1><p>" + body + "</p></article></body></html>"

	text, err := NewConverter(time.Second, time.Second).Convert(context.Background(), "page.html", []byte(html))
	if err != nil {
		t.Fatalf("Convert html: %v", err)
	}
	if !strings.Contains(text, "tenant documents") {
		t.Errorf("expected article text, got %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("markup leaked into text: %q", text)
	}
}

func TestConvertHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConverter(time.Second, time.Second)
	// a cancelled context may still race the fast passthrough, only an unexpected error is wrong
	if _, err := c.Convert(ctx, "a.txt", []byte("x")); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error %v", err)
	}
}
