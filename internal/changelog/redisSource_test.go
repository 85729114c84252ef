package changelog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStream = "rag.public.document"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newSource(t *testing.T, client *redis.Client) *RedisSource {
	t.Helper()
	src, err := NewRedisSource(context.Background(), client, RedisOptions{
		Stream:   testStream,
		Group:    "rag_public_document_worker",
		Consumer: "worker-1",
		Block:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	return src
}

func TestRedisSourcePollAndCommit(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	pub := NewRedisPublisher(client, testStream)
	require.NoError(t, pub.Publish(ctx, "doc-1", []byte(updateToIngesting)))

	src := newSource(t, client)
	msg, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", string(msg.Key))
	assert.JSONEq(t, updateToIngesting, string(msg.Value))

	require.NoError(t, src.Commit(ctx, msg))
	pending, err := client.XPending(ctx, testStream, "rag_public_document_worker").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestRedisSourceRecoversPending(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	require.NoError(t, NewRedisPublisher(client, testStream).Publish(ctx, "doc-1", []byte(updateToIngesting)))

	first := newSource(t, client)
	msg, err := first.Poll(ctx)
	require.NoError(t, err)
	// crash before commit

	second := newSource(t, client)
	again, err := second.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID, "unacknowledged entry is delivered again")
	require.NoError(t, second.Commit(ctx, again))

	_, err = second.Poll(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestRedisSourceSingleFieldEntry(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	require.NoError(t, EnsureGroup(ctx, client, testStream, "rag_public_document_worker"))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testStream,
		Values: map[string]any{`{"id":"doc-9"}`: updateToIngesting},
	}).Err())

	msg, err := newSource(t, client).Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"doc-9"}`, string(msg.Key))
	assert.JSONEq(t, updateToIngesting, string(msg.Value))
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	require.NoError(t, EnsureGroup(ctx, client, testStream, "g"))
	require.NoError(t, EnsureGroup(ctx, client, testStream, "g"))
}

func TestNewRedisSourceValidates(t *testing.T) {
	_, client := newRedis(t)
	_, err := NewRedisSource(context.Background(), client, RedisOptions{Stream: testStream})
	assert.Error(t, err)
}
