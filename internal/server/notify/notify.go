// Package notify hands verification events to the outside world. A Forwarder
// subscribed on the event bus encodes each event and passes it to a Sink:
// the log (development), an S3 outbox bucket polled by the mailer, or a Kafka
// topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/google/uuid"
)

// Sink delivers one encoded message. key groups messages of the same user.
type Sink interface {
	Send(ctx context.Context, key string, body []byte) error
	Close() error
}

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

type Forwarder struct {
	sink Sink
	log  logging.Logger
}

func NewForwarder(sink Sink, log logging.Logger) *Forwarder {
	return &Forwarder{sink: sink, log: log}
}

// Handle is an events.Handler.
func (f *Forwarder) Handle(ctx context.Context, e events.Event) error {
	key, err := keyOf(e)
	if err != nil {
		return err
	}

	body, err := json.Marshal(Envelope{
		ID:   uuid.NewString(),
		Type: string(e.Topic),
		Time: e.OccurredAt,
		Data: e.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Topic, err)
	}

	if err := f.sink.Send(ctx, key, body); err != nil {
		return fmt.Errorf("send %s: %w", e.Topic, err)
	}
	f.log.Info(ctx, "notification forwarded", "topic", e.Topic, "user_id", key)
	return nil
}

func keyOf(e events.Event) (string, error) {
	switch p := e.Payload.(type) {
	case events.VerificationRequested:
		return p.UserID, nil
	case events.UserDeleted:
		return p.UserID, nil
	default:
		return "", fmt.Errorf("unsupported payload %T on %s", e.Payload, e.Topic)
	}
}

// New builds the sink selected by cfg.NotifierBackend.
func New(ctx context.Context, cfg *sc.Config, log logging.Logger) (Sink, error) {
	switch cfg.NotifierBackend {
	case sc.NotifierLog, "":
		return NewLogSink(log), nil
	case sc.NotifierS3:
		return NewS3Outbox(ctx, cfg)
	case sc.NotifierKafka:
		return NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.NotifierBackend)
	}
}
