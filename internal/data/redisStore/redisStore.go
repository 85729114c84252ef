package redisStore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

// New connects to the given redis logical DB and pings it once.
func New(ctx context.Context, addr string, dbType int) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	logger := logger_i.NewLogger("Redis Store: " + strconv.Itoa(dbType))

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		return nil, fmt.Errorf("redis %s db %d is offline: %w", addr, dbType, err)
	}

	logger.Info("Redis store init successfully", "addr", addr)
	return &Store{
		client: newClient,
		Type:   dbType,
		logger: logger,
	}, nil
}

// NewFromClient wraps an existing client, mostly for miniredis backed tests.
func NewFromClient(client *redis.Client) *Store {
	return &Store{
		client: client,
		Type:   client.Options().DB,
		logger: logger_i.NewLogger("Redis Store: " + strconv.Itoa(client.Options().DB)),
	}
}

// Client exposes the underlying client for stream consumers sharing the connection.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Close() error {
	s.logger.Info("Closing Redis Store")
	if err := s.client.Close(); err != nil {
		s.logger.Error("Error closing redis client", "error", err)
		return err
	}
	return nil
}
