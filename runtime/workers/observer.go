package workers

import (
	"context"
	"log/slog"
	"time"

	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/observability"
)

const (
	IndexerName   = "indexer"
	PublisherName = "publisher"
)

// ObserverWorker receives relayed messages without ever blocking the relay.
// Messages are queued and handled one by one by Run, a full queue drops the message.
type ObserverWorker struct {
	name    string
	log     *slog.Logger
	queue   chan domain.Message
	handle  func(ctx context.Context, msg domain.Message) error
	metrics *observability.Metrics
}

func newObserverWorker(name string, log *slog.Logger, bufferSize int, metrics *observability.Metrics,
	handle func(ctx context.Context, msg domain.Message) error) *ObserverWorker {
	return &ObserverWorker{
		name:    name,
		log:     log,
		queue:   make(chan domain.Message, bufferSize),
		handle:  handle,
		metrics: metrics,
	}
}

// NewIndexWorker feeds the full text index.
func NewIndexWorker(log *slog.Logger, indexer contract.Indexer, bufferSize int, metrics *observability.Metrics) *ObserverWorker {
	return newObserverWorker(IndexerName, log, bufferSize, metrics, func(_ context.Context, msg domain.Message) error {
		return indexer.Index(msg)
	})
}

// NewPublishWorker forwards messages to the broker, each write bounded by timeout.
func NewPublishWorker(log *slog.Logger, publisher contract.Publisher, bufferSize int, timeout time.Duration, metrics *observability.Metrics) *ObserverWorker {
	return newObserverWorker(PublisherName, log, bufferSize, metrics, func(ctx context.Context, msg domain.Message) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return publisher.Publish(ctx, msg)
	})
}

func (w *ObserverWorker) Name() string { return w.name }

func (w *ObserverWorker) Observe(msg domain.Message) {
	select {
	case w.queue <- msg:
	default:
		w.metrics.Dropped(w.name)
		w.log.Warn("Observer queue full, message dropped", "observer", w.name, "message_id", msg.ID)
	}
}

// Channel exposes the queue to the capacity worker.
func (w *ObserverWorker) Channel() NamedChannel {
	return NamedChannel{Name: w.name, Channel: w.queue}
}

func (w *ObserverWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping observer", "observer", w.name)
			return nil
		case msg := <-w.queue:
			if err := w.handle(ctx, msg); err != nil {
				w.log.Warn("Observer failed to handle message", "observer", w.name, "message_id", msg.ID, "error", err)
			}
		}
	}
}
