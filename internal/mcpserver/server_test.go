package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	got  rag.Query
	hits []commonModels.SearchHit
	err  error
}

func (f *fakeSearch) Search(_ context.Context, q rag.Query) ([]commonModels.SearchHit, error) {
	f.got = q
	return f.hits, f.err
}

func connect(t *testing.T, search rag.Service) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	srv := New(search)
	go func() {
		_ = srv.MCP().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSearchToolRegistered(t *testing.T) {
	session := connect(t, &fakeSearch{})

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, SearchToolName, tools.Tools[0].Name)
}

func TestSearchToolReturnsHits(t *testing.T) {
	search := &fakeSearch{hits: []commonModels.SearchHit{
		{ChunkId: "c1", Score: 0.91, DocId: "d1", ChunkIndex: 2, FileName: "handbook.md", Text: "refunds take 5 days", Section: "Billing"},
	}}
	session := connect(t, search)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      SearchToolName,
		Arguments: map[string]any{"knowledge_id": "kb1", "query": "refund", "section": "Billing", "top_k": 3},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := textOf(t, res)
	assert.Contains(t, text, "handbook.md #2")
	assert.Contains(t, text, "section: Billing")
	assert.Contains(t, text, "refunds take 5 days")
	assert.Equal(t, rag.Query{KnowledgeId: "kb1", Text: "refund", Section: "Billing", TopK: 3}, search.got)
}

func TestSearchToolErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid query", fmt.Errorf("%w: query is required", rag.ErrInvalidQuery), "query is required"},
		{"backend failure", errors.New("qdrant down"), "search failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := connect(t, &fakeSearch{err: tt.err})

			res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
				Name:      SearchToolName,
				Arguments: map[string]any{"knowledge_id": "kb1", "query": "x"},
			})
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), tt.want)
			assert.NotContains(t, textOf(t, res), "qdrant down")
		})
	}
}

func TestSearchToolNoHits(t *testing.T) {
	session := connect(t, &fakeSearch{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      SearchToolName,
		Arguments: map[string]any{"knowledge_id": "kb1", "query": "nothing"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No matching chunks found.", textOf(t, res))
}
