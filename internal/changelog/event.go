package changelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
)

var (
	ErrMalformedEvent = errors.New("malformed change event")
	// ErrTombstone marks the empty value a log-compacted topic emits after a delete.
	ErrTombstone = errors.New("tombstone")
)

type Op string

const (
	OpCreate Op = "c"
	OpUpdate Op = "u"
	OpDelete Op = "d"
	OpRead   Op = "r" // snapshot read, treated as create
)

// Event is one row change of the document table.
type Event struct {
	Op     Op
	Before *commonModels.Document
	After  *commonModels.Document
	TsMs   int64
}

type envelope struct {
	Payload json.RawMessage `json:"payload"`
}

type rawEvent struct {
	Op     Op              `json:"op"`
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	TsMs   int64           `json:"ts_ms"`
}

// Decode parses a change log value. Both the schema wrapped form
// {payload: {op, before, after}} and the bare {op, before, after} are accepted.
func Decode(value []byte) (Event, error) {
	value = bytes.TrimSpace(value)
	if isNull(value) {
		return Event{}, ErrTombstone
	}
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	body := value
	if !isNull(env.Payload) {
		body = env.Payload
	}

	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.Op == "" {
		return Event{}, fmt.Errorf("%w: missing op", ErrMalformedEvent)
	}
	ev := Event{Op: raw.Op, TsMs: raw.TsMs}
	var err error
	if ev.Before, err = decodeRow(raw.Before); err != nil {
		return Event{}, fmt.Errorf("%w: before: %v", ErrMalformedEvent, err)
	}
	if ev.After, err = decodeRow(raw.After); err != nil {
		return Event{}, fmt.Errorf("%w: after: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}

// Encode renders ev in the schema wrapped form Decode accepts.
func Encode(ev Event) ([]byte, error) {
	type row struct {
		Op     Op                     `json:"op"`
		Before *commonModels.Document `json:"before"`
		After  *commonModels.Document `json:"after"`
		TsMs   int64                  `json:"ts_ms,omitempty"`
	}
	return json.Marshal(struct {
		Payload row `json:"payload"`
	}{Payload: row{Op: ev.Op, Before: ev.Before, After: ev.After, TsMs: ev.TsMs}})
}

func decodeRow(raw json.RawMessage) (*commonModels.Document, error) {
	if isNull(raw) {
		return nil, nil
	}
	var doc commonModels.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func isNull(b []byte) bool {
	return len(b) == 0 || string(b) == "null"
}
