//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport is one live client socket. Send must not block: a transport
// that cannot take a frame right away returns an error instead.
type Transport interface {
	ID() string
	Send(frame []byte) error
	Close() error
}

// Publisher is the write side of the dispatcher.
type Publisher interface {
	Publish(evt event.DomainEvent)
}

// OwnershipResolver tells who owns the entity behind a room.
// An empty owner means the entity belongs to a guest.
type OwnershipResolver interface {
	OwnerOf(ctx context.Context, room domain.RoomID) (string, error)
}

// Bridge carries events between hub nodes. Subscribe blocks until ctx is
// done or the bridge fails.
type Bridge interface {
	Publish(ctx context.Context, env event.Envelope) error
	Subscribe(ctx context.Context, handler func(event.Envelope)) error
	Close() error
}
