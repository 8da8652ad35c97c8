package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type Handler func(ctx context.Context, e Event) error

// Publisher is the side of the bus services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers every event to the handlers subscribed to its topic. Each
// handler runs on its own goroutine; the publisher never waits.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	wg       sync.WaitGroup
	log      logging.Logger
}

func NewBus(log logging.Logger) *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		log:      log,
	}
}

func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], h)
	b.log.Debug(context.Background(), "subscribed", "topic", topic)
}

// Publish dispatches e asynchronously. Handlers get a context detached from
// ctx's cancellation so a finished request does not abort them.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Topic]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug(ctx, "no subscribers", "topic", e.Topic)
		return
	}

	hctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := b.run(hctx, h, e); err != nil {
				b.log.Error(hctx, "event handler failed", "topic", e.Topic, "error", err)
			}
		}(h)
	}
}

func (b *Bus) run(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, e)
}

// Wait blocks until every handler started so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
