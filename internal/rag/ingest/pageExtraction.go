package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	readability "github.com/go-shiori/go-readability"
	"github.com/lu4p/cat"
)

type rawPage struct {
	Number  int
	Content string
}

func (c *Converter) extractPDF(data []byte) ([]rawPage, error) {
	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	c.logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			c.logger.Debug("extractPDF", "page value is null", i)
			continue
		}

		content, err := protectExtract(page, c.pageTimeout)
		if err != nil {
			// Log warning but continue with other pages
			c.logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractOffice reads .odt, .docx and .rtf bytes. Page boundaries are not available.
func extractOffice(data []byte) ([]rawPage, error) {
	text, err := cat.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract office document: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

func extractHTML(data []byte, fileName string) ([]rawPage, error) {
	pageURL := &url.URL{Scheme: "file", Path: "/" + fileName}
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract html: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(text, title) {
		text = "# " + title + "\n\n" + text
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

// protectExtract bounds a single page, the pdf library can spin on malformed content streams.
func protectExtract(page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(timeout):
		return "", errors.New("page extraction timeout")
	}
}
