package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// Publisher emits completed searches for downstream analytics.
type Publisher interface {
	PublishSearch(ctx context.Context, rec model.SearchRecord) error
	Close() error
}

// SearchEvent is the message value written for every successful search.
type SearchEvent struct {
	Type   string             `json:"type"`
	Search model.SearchRecord `json:"search"`
}

const searchCompletedEvent = "search.completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes search events keyed by user id so one user's
// searches land on the same partition.
type KafkaPublisher struct {
	writer     messageWriter
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration
}

func NewKafkaPublisher(cfg model.EventsConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(w, cfg), nil
}

func newKafkaPublisher(w messageWriter, cfg model.EventsConfig) *KafkaPublisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KafkaPublisher{
		writer:     w,
		maxRetries: max(cfg.MaxRetries, 0),
		timeout:    timeout,
		backoff:    100 * time.Millisecond,
	}
}

func (p *KafkaPublisher) PublishSearch(ctx context.Context, rec model.SearchRecord) error {
	value, err := json.Marshal(SearchEvent{Type: searchCompletedEvent, Search: rec})
	if err != nil {
		return fmt.Errorf("marshal search event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.UserID),
		Value: value,
		Time:  rec.Timestamp,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var writeErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		writeErr = p.writer.WriteMessages(ctx, msg)
		if writeErr == nil {
			logx.Debug().Str("search_id", rec.ID).Str("user_id", rec.UserID).Msg("Search event published")
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		wait := time.Duration(attempt+1) * p.backoff
		logx.Warn().Err(writeErr).Int("attempt", attempt+1).Dur("backoff", wait).Msg("Kafka write failed")
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("publish search %s: %w", rec.ID, writeErr)
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishSearch(context.Context, model.SearchRecord) error { return nil }
func (NopPublisher) Close() error                                            { return nil }
