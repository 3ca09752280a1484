package audit

import (
	"context"

	"enrolld/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
	inbox chan Event
	done  chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking by routing events through a
// buffered channel drained by a background goroutine. Events are dropped
// when the buffer is full rather than blocking the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.SurveyorID == "" {
		event.SurveyorID = requestcontext.SurveyorID(ctx)
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			// Buffer full: drop rather than block the request path.
		}
		return nil
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, surveyorID string) ([]Event, error) {
	return p.store.ListBySurveyor(ctx, surveyorID)
}

// Close stops the async drain goroutine after flushing buffered events.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	close(p.inbox)
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}
