package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"guild-chat/domain/envelope"
	"guild-chat/errors"
)

// SocketSink is the outbound buffer of one websocket connection.
// Frames are encoded once, queued, and written by the connection's write pump.
type SocketSink struct {
	log       *slog.Logger
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewSocketSink(log *slog.Logger, bufferSize int) *SocketSink {
	return &SocketSink{
		log:    log,
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume queues a frame without waiting: a full buffer is a slow consumer
// and the caller evicts the connection.
func (s *SocketSink) Consume(ctx context.Context, frame envelope.Frame) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.frames <- payload:
		return nil
	default:
		s.log.Warn("Slow consumer, frame not delivered", "type", frame.FrameType())
		return errors.ErrSlowConsumer
	}
}

// Frames is read by the write pump only.
func (s *SocketSink) Frames() <-chan []byte {
	return s.frames
}

// Done is closed once the sink is closed.
func (s *SocketSink) Done() <-chan struct{} {
	return s.done
}

// Close is safe to call more than once. The frames channel is never closed
// so that a concurrent Consume cannot panic.
func (s *SocketSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
