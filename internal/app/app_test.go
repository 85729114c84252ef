package app

import (
	"context"
	"testing"

	"github.com/akolanti/GoIngest/internal/changelog"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/data/store"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB/memoryDB"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Qdrant.InMemory = true
	cfg.Redis.Addr = redisAddr
	cfg.Storage.FileRoot = t.TempDir()
	cfg.Storage.Region = "us-east-1"
	return cfg
}

func TestNewWiresRedisRunStore(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(context.Background(), testConfig(t, mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &store.RedisJobStore{}, a.Runs)
	assert.IsType(t, &memoryDB.Index{}, a.Index)
	assert.Equal(t, config.EmbeddingOutputDimensionality, a.Embedder.Dimension())
	assert.NotNil(t, a.Jobs)
	assert.NotNil(t, a.Search)

	sweeper, err := a.NewSweeper()
	require.NoError(t, err)
	assert.NotNil(t, sweeper)
}

func TestNewFallsBackToMemoryRunStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, "127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.IsType(t, &store.InMemoryJobStore{}, a.Runs)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t, "127.0.0.1:1")
	cfg.Embedding.Provider = "cohere"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRedisChangeLogRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(context.Background(), testConfig(t, mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	source, err := a.NewSource(ctx)
	require.NoError(t, err)
	assert.IsType(t, &changelog.RedisSource{}, source)

	publisher, err := a.NewPublisher(ctx)
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, "d1", []byte(`{"payload":{"op":"d","before":{"id":"d1","knowledge_id":"kb1"}}}`)))

	msg, err := source.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d1", string(msg.Key))
	require.NoError(t, source.Commit(ctx, msg))
}

func TestConsumerName(t *testing.T) {
	assert.Equal(t, "w-7", consumerName("w-7"))
	assert.NotEmpty(t, consumerName(""))
}
