package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
	"restaurant-hub/errors"
	"restaurant-hub/mocks"
	"restaurant-hub/moderation"

	"github.com/goccy/go-json"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type alwaysMember struct{}

func (alwaysMember) IsMember(domain.ConnectionID, domain.RoomID) bool { return true }

func TestChatService_Store_Failure_Publishes_Nothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	repository := mocks.NewMockIChatRepository(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	moderator, err := moderation.NewModerator(nil, '*', log)
	req.NoError(err)
	service := NewChatService(log, repository, alwaysMember{}, publisher, moderator)

	// Given a store that refuses writes
	repository.EXPECT().GetSession("S1").Return(domain.ChatSession{ID: "S1", CustomerID: "alice"}, nil)
	repository.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("value log full"))
	publisher.EXPECT().Publish(gomock.Any()).Times(0)

	// When a message is sent
	_, err = service.SendMessage(context.Background(), alice, "c1", "S1", "hello")

	// Then the failure is internal and nothing left the hub
	req.Error(err)
	req.Equal(errors.KindInternal, errors.KindOf(err))
	req.Equal("internal error", errors.PublicMessage(err))
}

func TestCommandHandler_Internal_Error_Reply(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	repository := mocks.NewMockIOrderRepository(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	f := newFixture(t, nil)
	handler := NewCommandHandler(log, f.router, f.registry, NewCommandLimiter(0, 0),
		nil, NewOrderService(log, repository, publisher), nil, nil)
	_, id := f.connect(sam)

	repository.EXPECT().UpdateOrder("O1", gomock.Any()).Return(domain.Order{}, fmt.Errorf("badger: closed"))
	publisher.EXPECT().Publish(gomock.Any()).Times(0)

	reply := handler.HandleFrame(context.Background(), id, sam, []byte(`{"verb":"update_order_status","ref":"9","orderId":"O1","status":"ready"}`))

	requireKind(t, reply, errors.KindInternal)
	req.Equal("internal error", reply.Error.Message)
	req.Equal("9", reply.Ref)
}

func TestOrderService_Customer_Sees_Public_Notes_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{
		ID:         "O1",
		CustomerID: "alice",
		Notes: []domain.OrderNote{
			{ID: "n1", Content: "extra spicy"},
			{ID: "n2", Content: "regular, comp dessert", Internal: true},
		},
	}))
	service := NewOrderService(slog.Default(), f.orders, f.dispatcher)

	order, err := service.Get(context.Background(), alice, "O1")
	req.NoError(err)
	req.Len(order.Notes, 1)
	req.Equal("n1", order.Notes[0].ID)

	order, err = service.Get(context.Background(), sam, "O1")
	req.NoError(err)
	req.Len(order.Notes, 2)

	_, err = service.Get(context.Background(), bob, "O1")
	req.ErrorIs(err, errors.ErrForbidden)
}

func TestChatService_History(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice"}))
	_, aliceID := f.connect(alice)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"chat:S1"}`).OK)
	req.True(f.send(aliceID, alice, `{"verb":"send_chat_message","sessionId":"S1","message":"one"}`).OK)
	req.True(f.send(aliceID, alice, `{"verb":"send_chat_message","sessionId":"S1","message":"two"}`).OK)
	moderator, err := moderation.NewModerator(nil, '*', slog.Default())
	req.NoError(err)
	service := NewChatService(slog.Default(), f.chats, f.router, f.dispatcher, moderator)

	messages, _, err := service.History(context.Background(), sam, "S1", nil)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("one", messages[0].Content)

	_, _, err = service.History(context.Background(), bob, "S1", nil)
	req.ErrorIs(err, errors.ErrForbidden)
}

func TestNotificationService_List(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	service := NewNotificationService(slog.Default(), f.notifications, f.dispatcher)
	_, err := service.Broadcast(context.Background(), sam, Broadcast{Title: "Table ready", Targets: []string{"alice"}})
	req.NoError(err)

	list, err := service.List(context.Background(), alice, 10)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal("Table ready", list[0].Title)

	_, err = service.List(context.Background(), guest, 10)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestIngestService_Default_Rooms(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	aliceTransport, aliceID := f.connect(alice)
	samTransport, _ := f.connect(sam)
	bobTransport, _ := f.connect(bob)

	// Given a new order placed through the back office
	payload, err := json.Marshal(domain.Order{ID: "O1", CustomerID: "alice", Total: 42})
	req.NoError(err)
	evt, err := f.ingest.Ingest(context.Background(), IngestRequest{Type: event.OrderCreated, Payload: payload})
	req.NoError(err)
	req.ElementsMatch([]domain.RoomID{domain.OrderRoom("O1"), domain.StaffRoom()}, evt.TargetRooms)

	// Then staff hears about it, and the order is now joinable by its owner
	req.Len(samTransport.received("order.created"), 1)
	req.Len(samTransport.received("orderCreated"), 1)
	req.Empty(aliceTransport.received("order.created"))
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)
	order, err := f.orders.GetOrder("O1")
	req.NoError(err)
	req.Equal(domain.OrderPending, order.Status)

	// When the kitchen moves it on
	_, err = f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.OrderStatusChanged,
		Payload: []byte(`{"orderId":"O1","status":"preparing"}`),
	})
	req.NoError(err)

	frames := aliceTransport.received("order.status_changed")
	req.Len(frames, 1)
	req.Equal("pending", payloadOf(t, frames[0])["previousStatus"])
	req.Zero(bobTransport.count())
}

func TestIngestService_Snapshot_Keeps_Hub_Notes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	_, samID := f.connect(sam)
	created := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice", Status: domain.OrderPreparing, CreatedAt: created}))
	req.NoError(f.reservations.SaveReservation(domain.Reservation{ID: "R1", CustomerID: "alice", Status: domain.ReservationConfirmed}))

	// Given notes written through the hub
	req.True(f.send(samID, sam, `{"verb":"add_order_note","orderId":"O1","note":"no onions","type":"internal"}`).OK)
	req.True(f.send(samID, sam, `{"verb":"add_reservation_note","reservationId":"R1","note":"birthday"}`).OK)

	// When the back office sends snapshots without notes
	_, err := f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.OrderUpdated,
		Payload: []byte(`{"orderId":"O1","customerId":"alice","status":"ready","total":30}`),
	})
	req.NoError(err)
	_, err = f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.ReservationCreated,
		Payload: []byte(`{"reservationId":"R1","customerId":"alice","status":"confirmed","partySize":4}`),
	})
	req.NoError(err)

	// Then the snapshot fields win and the notes survive
	order, err := f.orders.GetOrder("O1")
	req.NoError(err)
	req.Equal(domain.OrderReady, order.Status)
	req.Equal(30.0, order.Total)
	req.Equal(created, order.CreatedAt)
	req.Len(order.Notes, 1)
	req.Equal("no onions", order.Notes[0].Content)

	reservation, err := f.reservations.GetReservation("R1")
	req.NoError(err)
	req.Equal(4, reservation.PartySize)
	req.Len(reservation.Notes, 1)

	// And a snapshot for an unknown order is stored as is
	_, err = f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.OrderUpdated,
		Payload: []byte(`{"orderId":"O2","customerId":"bob"}`),
	})
	req.NoError(err)
	fresh, err := f.orders.GetOrder("O2")
	req.NoError(err)
	req.Equal(domain.OrderPending, fresh.Status)
	req.Empty(fresh.Notes)
}

func TestIngestService_Explicit_Rooms(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	floor, floorID := f.connect(guest)
	req.True(f.send(floorID, guest, `{"verb":"join_room","room":"table:7"}`).OK)

	evt, err := f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.TableStatusChanged,
		Rooms:   []string{"table:7", "table:7"},
		Payload: []byte(`{"tableId":"7","status":"cleaning"}`),
	})

	req.NoError(err)
	req.Equal([]domain.RoomID{domain.TableRoom("7")}, evt.TargetRooms)
	req.Len(floor.received("table.status_changed"), 1)
}

func TestIngestService_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name    string
		request IngestRequest
		want    error
	}{
		{"unknown type", IngestRequest{Type: "order.eaten", Payload: []byte(`{}`)}, errors.ErrUnknownEventType},
		{"missing type", IngestRequest{Payload: []byte(`{}`)}, errors.ErrUnknownEventType},
		{"payload fails validation", IngestRequest{Type: event.OrderStatusChanged, Payload: []byte(`{"status":"ready"}`)}, errors.ErrInvalidBody},
		{"malformed payload", IngestRequest{Type: event.OrderStatusChanged, Payload: []byte(`{"orderId":`)}, errors.ErrInvalidBody},
		{"bad room", IngestRequest{Type: event.TableStatusChanged, Rooms: []string{"kitchen"}, Payload: []byte(`{"tableId":"1","status":"available"}`)}, errors.ErrInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ingest.Ingest(context.Background(), tt.request)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIngestService_Unknown_Entity_Is_Relayed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	samTransport, _ := f.connect(sam)

	_, err := f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.ReservationStatusChanged,
		Payload: []byte(`{"reservationId":"R404","status":"confirmed"}`),
	})

	req.NoError(err)
	req.Len(samTransport.received("reservation.status_changed"), 1)
	_, err = f.reservations.GetReservation("R404")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestIngestService_Staff_Notification_Is_Not_Stored(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	samTransport, _ := f.connect(sam)

	_, err := f.ingest.Ingest(context.Background(), IngestRequest{
		Type:    event.NotificationNew,
		Payload: []byte(`{"recipientId":"staff","title":"Low stock"}`),
	})

	req.NoError(err)
	req.Len(samTransport.received("notification.new"), 1)
	stored, err := f.notifications.ListNotifications(StaffRecipient, 10)
	req.NoError(err)
	req.Empty(stored)
}

func TestCommandLimiter(t *testing.T) {
	req := require.New(t)
	limiter := NewCommandLimiter(0.001, 2)

	req.True(limiter.Allow("c1"))
	req.True(limiter.Allow("c1"))
	req.False(limiter.Allow("c1"))
	req.True(limiter.Allow("c2"))
	req.Equal(2, limiter.Len())

	limiter.Forget("c1")
	req.Equal(1, limiter.Len())
	req.True(limiter.Allow("c1"))

	unlimited := NewCommandLimiter(0, 0)
	for range 100 {
		req.True(unlimited.Allow("c1"))
	}
}
