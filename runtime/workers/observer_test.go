package workers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"guild-chat/domain"
	"guild-chat/mocks"
	"guild-chat/observability"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func relayed(content string) domain.Message {
	return domain.Message{ID: uuid.New(), SenderID: "u1", Username: "Alice", Content: content, CreatedAt: time.Now().UTC()}
}

func TestIndexWorker_Indexes_Observed_Messages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	indexer := mocks.NewMockIndexer(ctrl)
	worker := NewIndexWorker(testLog, indexer, 10, nil)

	var indexed atomic.Int32
	first, second := relayed("one"), relayed("two")
	gomock.InOrder(
		indexer.EXPECT().Index(first).DoAndReturn(func(domain.Message) error { indexed.Add(1); return nil }),
		indexer.EXPECT().Index(second).DoAndReturn(func(domain.Message) error { indexed.Add(1); return fmt.Errorf("index closed") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- worker.Run(ctx) }()

	worker.Observe(first)
	worker.Observe(second)

	// Then both are handled in order and an indexing error does not stop the worker
	req.Eventually(func() bool { return indexed.Load() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)
}

func TestObserverWorker_Full_Queue_Drops_Without_Blocking(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	indexer := mocks.NewMockIndexer(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Given a worker that is not running, with room for a single message
	worker := NewIndexWorker(testLog, indexer, 1, metrics)

	returned := make(chan struct{})
	go func() {
		worker.Observe(relayed("kept"))
		worker.Observe(relayed("dropped"))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		req.Fail("Observe must never block")
	}
	req.Equal(1.0, testutil.ToFloat64(metrics.ObservationsDropped.WithLabelValues(IndexerName)))
	req.Equal(1, len(worker.queue))
}

func TestPublishWorker_Bounds_Each_Write(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	worker := NewPublishWorker(testLog, publisher, 10, 50*time.Millisecond, nil)
	msg := relayed("hello")

	published := make(chan struct{})
	publisher.EXPECT().Publish(gomock.Any(), msg).
		DoAndReturn(func(ctx context.Context, _ domain.Message) error {
			deadline, ok := ctx.Deadline()
			req.True(ok)
			req.WithinDuration(time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
			close(published)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	worker.Observe(msg)
	select {
	case <-published:
	case <-time.After(time.Second):
		req.Fail("message was not published")
	}
	req.Equal(PublisherName, worker.Name())
}
