//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself, the supervisor restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging during supervision, so workers don't need to name themselves.
// A worker exposing Name() string overrides it.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
type EventSink interface {
	Consume(ctx context.Context, frame envelope.Frame) error
	Close() error
}

// MessageStore is the persistence collaborator: it owns ids and timestamps.
type MessageStore interface {
	Save(ctx context.Context, draft domain.Draft) (domain.Message, error)
	History(ctx context.Context, limit int) ([]domain.Message, error)
}

// Broadcaster delivers a canonical envelope to every authenticated connection.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg envelope.Message) int
}

// Authenticator turns an auth envelope into an identity.
type Authenticator interface {
	Authenticate(in envelope.Inbound) (domain.Identity, error)
}

type Moderator interface {
	Inspect(content string) domain.Verdict
}

// MessageObserver is notified after a message was broadcast.
// Observe must never block the caller.
type MessageObserver interface {
	Observe(msg domain.Message)
}

type Indexer interface {
	Index(msg domain.Message) error
}

type Publisher interface {
	Publish(ctx context.Context, msg domain.Message) error
}

// Searcher runs full text queries over the relayed messages.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
}
