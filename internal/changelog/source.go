package changelog

import (
	"context"
	"errors"
)

// ErrNoMessage is returned by Poll when nothing arrived within the poll timeout.
var ErrNoMessage = errors.New("no message")

// Message is one entry of the change log. ID is unique within the source.
type Message struct {
	ID    string
	Key   []byte
	Value []byte
	ref   any
}

// Source is an ordered, at-least-once change log with explicit commits.
type Source interface {
	Poll(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// Publisher appends raw change log values, used by ragctl publish.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}
