package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
	"restaurant-hub/errors"
	"restaurant-hub/moderation"
	"restaurant-hub/repositories"
	"restaurant-hub/runtime"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.NewIdentity("alice", domain.RoleCustomer, "Alice")
	bob   = domain.NewIdentity("bob", domain.RoleCustomer, "Bob")
	sam   = domain.NewIdentity("sam", domain.RoleStaff, "Sam")
	guest = domain.AnonymousIdentity()
)

// recorder is a transport keeping every frame it was handed.
type recorder struct {
	mu     sync.Mutex
	id     string
	frames []event.Frame
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Send(raw []byte) error {
	var frame event.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return nil
}

func (r *recorder) Close() error { return nil }

// received returns the frames carrying the given name.
func (r *recorder) received(name string) []event.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Frame
	for _, f := range r.frames {
		if f.Type == name {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

type fixture struct {
	t             *testing.T
	registry      *runtime.Registry
	router        *runtime.Router
	dispatcher    *runtime.Dispatcher
	chats         repositories.ChatRepository
	orders        repositories.OrderRepository
	reservations  repositories.ReservationRepository
	notifications repositories.NotificationRepository
	handler       *CommandHandler
	ingest        *IngestService
}

func newFixture(t *testing.T, limiter *CommandLimiter) fixture {
	t.Helper()
	log := slog.Default()
	db, err := repositories.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	chats := repositories.NewChatRepository(db, log, nil)
	orders := repositories.NewOrderRepository(db)
	reservations := repositories.NewReservationRepository(db)
	notifications := repositories.NewNotificationRepository(db)

	registry := runtime.NewRegistry(log)
	router := runtime.NewRouter(log, registry, repositories.NewOwnership(chats, orders, reservations))
	dispatcher := runtime.NewDispatcher(log, registry, nil)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)
	if limiter == nil {
		limiter = NewCommandLimiter(0, 0)
	}

	handler := NewCommandHandler(log, router, registry, limiter,
		NewChatService(log, chats, router, dispatcher, moderator),
		NewOrderService(log, orders, dispatcher),
		NewReservationService(log, reservations, dispatcher),
		NewNotificationService(log, notifications, dispatcher))

	return fixture{
		t:             t,
		registry:      registry,
		router:        router,
		dispatcher:    dispatcher,
		chats:         chats,
		orders:        orders,
		reservations:  reservations,
		notifications: notifications,
		handler:       handler,
		ingest:        NewIngestService(log, chats, orders, reservations, notifications, dispatcher),
	}
}

// connect registers a transport and auto joins it like the handshake does.
func (f fixture) connect(identity domain.Identity) (*recorder, domain.ConnectionID) {
	r := &recorder{id: uuid.NewString()}
	conn, err := f.registry.Register(r, identity)
	require.NoError(f.t, err)
	f.router.AutoJoin(context.Background(), conn.ID, identity)
	return r, conn.ID
}

func (f fixture) send(id domain.ConnectionID, identity domain.Identity, frame string) Reply {
	return f.handler.HandleFrame(context.Background(), id, identity, []byte(frame))
}

func payloadOf(t *testing.T, frame event.Frame) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	return payload
}

func requireKind(t *testing.T, reply Reply, kind errors.Kind) {
	t.Helper()
	require.False(t, reply.OK, "reply should be an error")
	require.NotNil(t, reply.Error)
	require.Equal(t, kind, reply.Error.Kind, reply.Error.Message)
}
