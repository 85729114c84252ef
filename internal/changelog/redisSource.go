package changelog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const readCount = 16

// valueFields are tried in order when picking the event out of a stream entry.
var valueFields = []string{"value", "envelope", "payload"}

type RedisOptions struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
}

// RedisSource reads a Redis stream through a consumer group. Entries left
// pending by an earlier run of the same consumer are delivered first.
type RedisSource struct {
	client        *redis.Client
	opts          RedisOptions
	buffer        []Message
	pendingDone   bool
	pendingCursor string
	logger        *logger_i.Logger
}

func NewRedisSource(ctx context.Context, client *redis.Client, opts RedisOptions) (*RedisSource, error) {
	if opts.Stream == "" || opts.Group == "" || opts.Consumer == "" {
		return nil, errors.New("redis source needs stream, group and consumer")
	}
	if opts.Block <= 0 {
		opts.Block = time.Second
	}
	if err := EnsureGroup(ctx, client, opts.Stream, opts.Group); err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("Redis ChangeLog").With("stream", opts.Stream, "group", opts.Group, "consumer", opts.Consumer)
	logger.Info("Subscribed to change log")
	return &RedisSource{client: client, opts: opts, pendingCursor: "0", logger: logger}, nil
}

// EnsureGroup creates the consumer group reading from the start of the stream.
func EnsureGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

func (s *RedisSource) Poll(ctx context.Context) (Message, error) {
	if len(s.buffer) == 0 {
		if err := s.fill(ctx); err != nil {
			return Message{}, err
		}
	}
	if len(s.buffer) == 0 {
		return Message{}, ErrNoMessage
	}
	msg := s.buffer[0]
	s.buffer = s.buffer[1:]
	return msg, nil
}

func (s *RedisSource) fill(ctx context.Context) error {
	if !s.pendingDone {
		// an explicit id replays this consumer's unacknowledged entries after it and never blocks
		n, err := s.read(ctx, s.pendingCursor, -1)
		if err != nil {
			return err
		}
		if n > 0 {
			s.pendingCursor = s.buffer[len(s.buffer)-1].ID
			s.logger.Info("Recovered pending change events", "count", n)
			return nil
		}
		s.pendingDone = true
	}
	_, err := s.read(ctx, ">", s.opts.Block)
	return err
}

func (s *RedisSource) read(ctx context.Context, id string, block time.Duration) (int, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.opts.Group,
		Consumer: s.opts.Consumer,
		Streams:  []string{s.opts.Stream, id},
		Count:    readCount,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("xreadgroup: %w", err)
	}
	n := 0
	for _, st := range streams {
		for _, entry := range st.Messages {
			s.buffer = append(s.buffer, toMessage(entry))
			n++
		}
	}
	return n, nil
}

func toMessage(entry redis.XMessage) Message {
	msg := Message{ID: entry.ID}
	if key, ok := entry.Values["key"].(string); ok {
		msg.Key = []byte(key)
	}
	for _, field := range valueFields {
		if v, ok := entry.Values[field].(string); ok {
			msg.Value = []byte(v)
			return msg
		}
	}
	// Debezium Server writes the row key as the field name and the event as its value.
	if len(entry.Values) == 1 {
		for k, v := range entry.Values {
			msg.Key = []byte(k)
			if str, ok := v.(string); ok {
				msg.Value = []byte(str)
			}
		}
	}
	return msg
}

func (s *RedisSource) Commit(ctx context.Context, msg Message) error {
	if err := s.client.XAck(ctx, s.opts.Stream, s.opts.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", msg.ID, err)
	}
	return nil
}

// Close leaves the shared client open, its owner closes it.
func (s *RedisSource) Close() error {
	s.logger.Info("Change log source closed")
	return nil
}

type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"key": key, "value": string(value)},
	}).Err()
}

func (p *RedisPublisher) Close() error {
	return nil
}
