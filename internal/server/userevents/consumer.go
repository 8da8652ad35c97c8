// Package userevents feeds account lifecycle events published by the user
// service over Kafka into the in-process event bus.
package userevents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/segmentio/kafka-go"
)

// eventTypeHeader names the Kafka header carrying the event type.
const eventTypeHeader = "event_type"

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// payload is the message body. When userId is absent the message key is used.
type payload struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Consumer reads user.created and user.deleted messages and republishes them
// on the bus. Messages are committed once handed to the bus; malformed and
// unknown messages are logged and skipped.
type Consumer struct {
	reader    messageReader
	publisher events.Publisher
	log       logging.Logger
	backoff   time.Duration
}

func NewKafkaReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}

func NewConsumer(r messageReader, pub events.Publisher, log logging.Logger) *Consumer {
	return &Consumer{
		reader:    r,
		publisher: pub,
		log:       log.With("component", "user_events"),
		backoff:   time.Second,
	}
}

// Run consumes until ctx is done, then closes the reader.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info(ctx, "Starting user events consumer")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Error(ctx, "Failed to close Kafka reader", "error", err)
		}
		c.log.Info(ctx, "Stopped user events consumer")
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error(ctx, "Failed to read message from Kafka", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		if e, err := decode(m); err != nil {
			c.log.Warn(ctx, "user event skipped", "key", string(m.Key), "offset", m.Offset, "error", err)
		} else {
			c.publisher.Publish(ctx, e)
			c.log.Debug(ctx, "user event dispatched", "topic", e.Topic, "offset", m.Offset)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Error(ctx, "Failed to commit Kafka message", "offset", m.Offset, "error", err)
		}
	}
}

func decode(m kafka.Message) (events.Event, error) {
	var p payload
	if len(m.Value) > 0 {
		if err := json.Unmarshal(m.Value, &p); err != nil {
			return events.Event{}, err
		}
	}

	kind := p.Type
	for _, h := range m.Headers {
		if h.Key == eventTypeHeader {
			kind = string(h.Value)
		}
	}

	userID := p.UserID
	if userID == "" {
		userID = string(m.Key)
	}
	if userID == "" {
		return events.Event{}, errors.New("no user id")
	}

	switch events.Topic(kind) {
	case events.TopicUserCreated:
		return events.NewUserCreated(userID), nil
	case events.TopicUserDeleted:
		return events.NewUserDeleted(userID), nil
	default:
		return events.Event{}, errors.New("unknown event type " + kind)
	}
}
