package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/tmc/langchaingo/textsplitter"
)

func init() {
	// bundled BPE ranks, workers must not download encodings at runtime
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var headingLine = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)

// Splitter cuts normalized text into overlapping token bounded chunks.
// For a given configuration the output depends only on the input text.
type Splitter struct {
	splitter textsplitter.TextSplitter
	encoding *tiktoken.Tiktoken
}

func NewSplitter(chunkSize, chunkOverlap int, encodingName string) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("invalid splitter window size=%d overlap=%d", chunkSize, chunkOverlap)
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encodingName, err)
	}
	s := &Splitter{encoding: enc}
	s.splitter = textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithLenFunc(s.CountTokens),
		textsplitter.WithCodeBlocks(true),
	)
	return s, nil
}

func (s *Splitter) CountTokens(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}

// Split returns chunks indexed 0..N-1 in source order. Each chunk carries the
// heading in force where it starts.
func (s *Splitter) Split(docId string, text string) ([]commonModels.DocChunk, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	chunks := make([]commonModels.DocChunk, 0, len(parts))
	section := ""
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if first, ok := firstHeading(part); ok {
			section = first
		}
		chunks = append(chunks, commonModels.DocChunk{
			DocId:      docId,
			ChunkIndex: len(chunks),
			Chunk:      part,
			TokenCount: s.CountTokens(part),
			Section:    section,
		})
		if last, ok := lastHeading(part); ok {
			section = last
		}
	}
	return chunks, nil
}

// firstHeading returns the heading when the chunk opens with one.
func firstHeading(chunk string) (string, bool) {
	line, _, _ := strings.Cut(chunk, "\n")
	if m := headingLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		return m[1], true
	}
	return "", false
}

func lastHeading(chunk string) (string, bool) {
	lines := strings.Split(chunk, "\n")
	inCode := false
	heading, found := "", false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if m := headingLine.FindStringSubmatch(trimmed); m != nil {
			heading, found = m[1], true
		}
	}
	return heading, found
}
