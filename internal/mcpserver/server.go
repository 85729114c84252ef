// Package mcpserver exposes knowledge base retrieval as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "goingest"
	serverVersion = "1.0.0"

	SearchToolName = "search_knowledge"
)

// SearchInput is the argument schema of the search_knowledge tool.
type SearchInput struct {
	KnowledgeId string `json:"knowledge_id" jsonschema:"knowledge base to search"`
	Query       string `json:"query" jsonschema:"natural language query"`
	Section     string `json:"section,omitempty" jsonschema:"only return chunks under this markdown heading"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 8, max 100)"`
}

type Server struct {
	server *mcp.Server
	search rag.Service
	logger *logger_i.Logger
}

func New(search rag.Service) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		search: search,
		logger: logger_i.NewLogger("MCP"),
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Search a knowledge base for document chunks relevant to a query. Returns the chunk text with its source file and score.",
	}, s.handleSearch)
	return s
}

// MCP returns the underlying server for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// HTTPHandler serves the tools over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	hits, err := s.search.Search(ctx, rag.Query{
		KnowledgeId: input.KnowledgeId,
		Text:        input.Query,
		Section:     input.Section,
		TopK:        input.TopK,
	})
	if err != nil {
		if errors.Is(err, rag.ErrInvalidQuery) {
			return ErrorResult(err.Error(), "knowledge_id and query are required, top_k must not be negative"), nil, nil
		}
		s.logger.Error("search tool failed", "knowledgeId", input.KnowledgeId, "error", err)
		return ErrorResult("search failed", "retry later"), nil, nil
	}
	if len(hits) == 0 {
		return TextResult("No matching chunks found."), nil, nil
	}
	return TextResult(formatHits(hits)), nil, nil
}

func formatHits(hits []commonModels.SearchHit) string {
	items := make([]string, len(hits))
	for i, h := range hits {
		header := fmt.Sprintf("[%d] %s #%d (score %.3f)", i+1, h.FileName, h.ChunkIndex, h.Score)
		if h.Section != "" {
			header += " section: " + h.Section
		}
		items[i] = header + "\n" + h.Text
	}
	return strings.Join(items, "\n\n")
}

// ErrorResult returns a tool error the caller can read and act on.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
