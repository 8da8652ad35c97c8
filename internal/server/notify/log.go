package notify

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogSink records that a message would have been sent. The body carries a
// live token and is not logged.
type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(ctx context.Context, key string, body []byte) error {
	s.log.Info(ctx, "notification dropped to log sink", "key", key, "bytes", len(body))
	return nil
}

func (s *LogSink) Close() error { return nil }
