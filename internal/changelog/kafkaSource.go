package changelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/segmentio/kafka-go"
)

type KafkaOptions struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// KafkaSource reads the Debezium topic with a consumer group and commits offsets explicitly.
// Offsets are cumulative per partition, so it must be driven by a single worker.
type KafkaSource struct {
	reader      *kafka.Reader
	pollTimeout time.Duration
	logger      *logger_i.Logger
}

func NewKafkaSource(opts KafkaOptions) (*KafkaSource, error) {
	if len(opts.Brokers) == 0 || opts.Topic == "" || opts.GroupID == "" {
		return nil, errors.New("kafka source needs brokers, topic and group id")
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     opts.Brokers,
		GroupID:     opts.GroupID,
		Topic:       opts.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     opts.PollTimeout,
	})
	logger := logger_i.NewLogger("Kafka ChangeLog").With("topic", opts.Topic, "group", opts.GroupID)
	logger.Info("Subscribed to change log", "brokers", opts.Brokers)
	return &KafkaSource{reader: reader, pollTimeout: opts.PollTimeout, logger: logger}, nil
}

func (s *KafkaSource) Poll(ctx context.Context) (Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()
	m, err := s.reader.FetchMessage(pollCtx)
	if err != nil {
		return Message{}, fetchError(ctx, err)
	}
	return fromKafka(m), nil
}

// fetchError maps an expired poll window to ErrNoMessage. Cancellation of ctx itself is passed through.
func fetchError(ctx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return ErrNoMessage
	}
	return fmt.Errorf("fetch message: %w", err)
}

func fromKafka(m kafka.Message) Message {
	return Message{
		ID:    fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		Key:   m.Key,
		Value: m.Value,
		ref:   m,
	}
}

func (s *KafkaSource) Commit(ctx context.Context, msg Message) error {
	m, ok := msg.ref.(kafka.Message)
	if !ok {
		return fmt.Errorf("message %s was not read from kafka", msg.ID)
	}
	return s.reader.CommitMessages(ctx, m)
}

func (s *KafkaSource) Close() error {
	s.logger.Info("Change log source closed")
	return s.reader.Close()
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
