package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

type fakeWriter struct {
	failures int
	calls    int
	written  []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testRecord() model.SearchRecord {
	return model.SearchRecord{
		ID:          "search-1",
		UserID:      "u1",
		Timestamp:   time.Date(2025, time.April, 16, 10, 0, 0, 0, time.UTC),
		Criteria:    model.SearchCriteria{Location: "Banff", GuestCount: 2},
		ResultCount: 3,
	}
}

func TestKafkaPublisher_WritesKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, model.EventsConfig{})

	require.NoError(t, p.PublishSearch(context.Background(), testRecord()))
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, "u1", string(msg.Key))

	var ev SearchEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "search.completed", ev.Type)
	assert.Equal(t, "Banff", ev.Search.Criteria.Location)
	assert.Equal(t, 3, ev.Search.ResultCount)
}

func TestKafkaPublisher_RetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newKafkaPublisher(w, model.EventsConfig{MaxRetries: 2})
	p.backoff = time.Millisecond

	require.NoError(t, p.PublishSearch(context.Background(), testRecord()))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.written, 1)
}

func TestKafkaPublisher_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newKafkaPublisher(w, model.EventsConfig{MaxRetries: 1})
	p.backoff = time.Millisecond

	err := p.PublishSearch(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search-1")
	assert.Equal(t, 2, w.calls)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newKafkaPublisher(w, model.EventsConfig{}).Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(model.EventsConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafkaPublisher(model.EventsConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(model.EventsConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishSearch(context.Background(), testRecord()))
	assert.NoError(t, p.Close())
}
