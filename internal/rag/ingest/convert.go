package ingest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

// Converter turns raw document bytes into normalized text.
type Converter struct {
	timeout     time.Duration
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewConverter(timeout, pageTimeout time.Duration) *Converter {
	return &Converter{
		timeout:     timeout,
		pageTimeout: pageTimeout,
		logger:      logger_i.NewLogger("Document Converter"),
	}
}

// Convert picks an extractor from the file extension, sniffing the content when the extension is unknown.
func (c *Converter) Convert(ctx context.Context, fileName string, data []byte) (string, error) {
	docType := commonModels.DocTypeFromName(fileName)
	if docType == commonModels.ERR {
		docType = sniffDocType(data)
	}
	c.logger.Debug("Converting document", "file", fileName, "type", docType, "bytes", len(data))

	type result struct {
		pages []rawPage
		err   error
	}
	resChan := make(chan result, 1)
	go func() {
		pages, err := c.extract(docType, fileName, data)
		resChan <- result{pages, err}
	}()

	var pages []rawPage
	timeout := c.timeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", fmt.Errorf("conversion of %s timed out after %s", fileName, timeout)
	case r := <-resChan:
		if r.err != nil {
			return "", r.err
		}
		pages = r.pages
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		if text := normalizeText(page.Content); text != "" {
			parts = append(parts, text)
		}
	}
	text := strings.Join(parts, "\n\n")
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func (c *Converter) extract(docType commonModels.DocType, fileName string, data []byte) ([]rawPage, error) {
	switch docType {
	case commonModels.PDF:
		return c.extractPDF(data)
	case commonModels.DOCX, commonModels.ODT, commonModels.RTF:
		return extractOffice(data)
	case commonModels.HTML:
		return extractHTML(data, fileName)
	case commonModels.MD, commonModels.TXT:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s is not valid utf-8 text", fileName)
		}
		return []rawPage{{Number: 1, Content: string(data)}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileName)
	}
}

func sniffDocType(data []byte) commonModels.DocType {
	if len(data) >= 5 && string(data[:5]) == "%PDF-" {
		return commonModels.PDF
	}
	if len(data) >= 5 && string(data[:5]) == "{\\rtf" {
		return commonModels.RTF
	}
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		return commonModels.HTML
	case strings.HasPrefix(contentType, "text/plain"):
		return commonModels.TXT
	case strings.HasPrefix(contentType, "application/zip"):
		// docx and odt are zip containers, cat tells them apart
		return commonModels.DOCX
	}
	return commonModels.ERR
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
)

// normalizeText unifies line endings, squeezes inner runs of spaces and collapses blank lines.
// Leading indentation is kept so markdown lists and code blocks survive.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\f\v\u00a0")
		body := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(body)]
		lines[i] = indent + horizontalSpace.ReplaceAllString(body, " ")
	}
	s = strings.Join(lines, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n ")
}
