package changelog

import (
	"errors"
	"testing"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const updateToIngesting = `{"schema":{},"payload":{"op":"u","ts_ms":1700000000000,
 "before":{"id":"doc-1","knowledge_id":"kb-1","filename":"a.pdf","s3_key":"bucket/a.pdf","status":"uploaded"},
 "after":{"id":"doc-1","knowledge_id":"kb-1","filename":"a.pdf","s3_key":"bucket/a.pdf","status":"ingesting","chunk_count":0}}}`

func TestDecodeEnvelope(t *testing.T) {
	ev, err := Decode([]byte(updateToIngesting))
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, ev.Op)
	assert.Equal(t, int64(1700000000000), ev.TsMs)
	require.NotNil(t, ev.Before)
	require.NotNil(t, ev.After)
	assert.Equal(t, commonModels.Document{Id: "doc-1", KnowledgeId: "kb-1", FileName: "a.pdf", Locator: "bucket/a.pdf", Status: "ingesting"}, *ev.After)
}

func TestDecodeBareEvent(t *testing.T) {
	ev, err := Decode([]byte(`{"op":"d","before":{"id":"doc-2","knowledge_id":"kb-1"},"after":null}`))
	require.NoError(t, err)
	assert.Equal(t, OpDelete, ev.Op)
	assert.Nil(t, ev.After)
	assert.Equal(t, "doc-2", ev.Before.Id)
}

func TestEncodedEventRoutesToIngest(t *testing.T) {
	before := commonModels.Document{Id: "doc-3", KnowledgeId: "kb-1", FileName: "b.md", Locator: "file:///b.md", Status: commonModels.StatusUploaded}
	after := before
	after.Status = commonModels.StatusIngesting

	value, err := Encode(Event{Op: OpUpdate, Before: &before, After: &after})
	require.NoError(t, err)

	ev, err := Decode(value)
	require.NoError(t, err)
	action, doc, err := Route(ev)
	require.NoError(t, err)
	assert.Equal(t, ActionIngest, action)
	assert.Equal(t, after, doc)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  error
	}{
		{"empty", "", ErrTombstone},
		{"null", "null", ErrTombstone},
		{"not json", "{op:", ErrMalformedEvent},
		{"no op", `{"payload":{"after":{"id":"x"}}}`, ErrMalformedEvent},
		{"row is not an object", `{"payload":{"op":"c","after":"oops"}}`, ErrMalformedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.value))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func doc(id, status string) *commonModels.Document {
	return &commonModels.Document{Id: id, KnowledgeId: "kb-1", FileName: "a.md", Locator: "bucket/a.md", Status: status}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name      string
		ev        Event
		want      Action
		malformed bool
	}{
		{"create is logged only", Event{Op: OpCreate, After: doc("d", "uploaded")}, ActionSkip, false},
		{"snapshot read is logged only", Event{Op: OpRead, After: doc("d", "ingesting")}, ActionSkip, false},
		{"into ingesting", Event{Op: OpUpdate, Before: doc("d", "uploaded"), After: doc("d", "ingesting")}, ActionIngest, false},
		{"retry from error", Event{Op: OpUpdate, Before: doc("d", "error"), After: doc("d", "ingesting")}, ActionIngest, false},
		{"still ingesting", Event{Op: OpUpdate, Before: doc("d", "ingesting"), After: doc("d", "ingesting")}, ActionSkip, false},
		{"our own ready report", Event{Op: OpUpdate, Before: doc("d", "ingesting"), After: doc("d", "ready")}, ActionSkip, false},
		{"update without before", Event{Op: OpUpdate, After: doc("d", "ingesting")}, ActionSkip, true},
		{"ingest without knowledge", Event{Op: OpUpdate, Before: doc("d", "uploaded"), After: &commonModels.Document{Id: "d", Status: "ingesting"}}, ActionSkip, true},
		{"delete", Event{Op: OpDelete, Before: doc("d", "ready")}, ActionDelete, false},
		{"delete without before", Event{Op: OpDelete}, ActionSkip, true},
		{"unknown op", Event{Op: "t"}, ActionSkip, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, _, err := Route(tt.ev)
			assert.Equal(t, tt.want, action)
			assert.Equal(t, tt.malformed, errors.Is(err, ErrMalformedEvent), "err = %v", err)
		})
	}
}
