package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"restaurant-hub/contract"
	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
	"restaurant-hub/errors"
	"restaurant-hub/repositories"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IngestRequest is what backend collaborators post to the hub.
type IngestRequest struct {
	Type    event.Type      `json:"type" validate:"required"`
	Rooms   []string        `json:"rooms,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type IIngestService interface {
	Ingest(ctx context.Context, request IngestRequest) (event.DomainEvent, error)
}

// IngestService turns backend notifications into domain events. The read
// model is updated before the event leaves, so a client re-fetching on
// notification sees the new state.
type IngestService struct {
	log           *slog.Logger
	chats         repositories.IChatRepository
	orders        repositories.IOrderRepository
	reservations  repositories.IReservationRepository
	notifications repositories.INotificationRepository
	publisher     contract.Publisher
	now           func() time.Time
}

func NewIngestService(log *slog.Logger,
	chats repositories.IChatRepository,
	orders repositories.IOrderRepository,
	reservations repositories.IReservationRepository,
	notifications repositories.INotificationRepository,
	publisher contract.Publisher) *IngestService {
	return &IngestService{
		log:           log,
		chats:         chats,
		orders:        orders,
		reservations:  reservations,
		notifications: notifications,
		publisher:     publisher,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *IngestService) Ingest(_ context.Context, request IngestRequest) (event.DomainEvent, error) {
	if !event.Known(request.Type) {
		return event.DomainEvent{}, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, request.Type)
	}
	payload, err := event.Decode(request.Type, request.Payload)
	if err != nil {
		return event.DomainEvent{}, err
	}
	if err := validateStruct(payload); err != nil {
		return event.DomainEvent{}, err
	}

	rooms, err := s.rooms(request.Rooms, payload)
	if err != nil {
		return event.DomainEvent{}, err
	}
	payload, err = s.upsert(payload)
	if err != nil {
		return event.DomainEvent{}, fmt.Errorf("upsert %s: %w", request.Type, err)
	}

	evt := event.New(payload, rooms...)
	s.publisher.Publish(evt)
	s.log.Debug("Event ingested", "event_id", evt.ID, "type", string(evt.Type), "rooms", len(rooms))
	return evt, nil
}

func (s *IngestService) rooms(raw []string, payload event.Payload) ([]domain.RoomID, error) {
	if len(raw) == 0 {
		return DefaultRooms(payload), nil
	}
	rooms := make([]domain.RoomID, 0, len(raw))
	for _, r := range lo.Uniq(raw) {
		room, err := domain.ParseRoomID(r)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// upsert applies entity-bearing payloads to the read model. Status updates
// for entities the hub never saw are published without being stored.
func (s *IngestService) upsert(payload event.Payload) (event.Payload, error) {
	now := s.now()
	switch p := payload.(type) {
	case event.NewChatMessage:
		if p.SessionID == "" {
			return nil, fmt.Errorf("%w: sessionId is required", errors.ErrInvalidBody)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		return p, s.chats.StoreMessage(p.ChatMessage)
	case event.ChatSessionOpened:
		if p.Status == "" {
			p.Status = domain.ChatWaiting
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		return p, s.chats.SaveSession(p.ChatSession)
	case event.ChatSessionStatus:
		_, err := s.chats.UpdateSession(p.SessionID, func(session *domain.ChatSession) error {
			session.Status = p.Status
			if p.AgentID != "" {
				session.AgentID = p.AgentID
			}
			session.UpdatedAt = now
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.OrderPlaced:
		return p, s.mergeOrder(p.Order, now)
	case event.OrderChanged:
		return p, s.mergeOrder(p.Order, now)
	case event.OrderStatus:
		if p.ChangedAt.IsZero() {
			p.ChangedAt = now
		}
		_, err := s.orders.UpdateOrder(p.OrderID, func(order *domain.Order) error {
			if p.Previous == "" {
				p.Previous = order.Status
			}
			order.Status = p.Status
			order.UpdatedAt = now
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.PaymentCompleted:
		if p.PaidAt.IsZero() {
			p.PaidAt = now
		}
		_, err := s.orders.UpdateOrder(p.OrderID, func(order *domain.Order) error {
			order.PaymentStatus = "paid"
			order.UpdatedAt = now
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.ItemStatus:
		_, err := s.orders.UpdateOrder(p.OrderID, func(order *domain.Order) error {
			return order.SetItemStatus(p.ItemID, p.Status, now)
		})
		return p, s.ignoreMissing(err)
	case event.NoteAdded:
		if p.Note.ID == "" {
			p.Note.ID = uuid.NewString()
		}
		if p.Note.At.IsZero() {
			p.Note.At = now
		}
		_, err := s.orders.UpdateOrder(p.OrderID, func(order *domain.Order) error {
			order.Notes = append(order.Notes, p.Note)
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.ReservationPlaced:
		return p, s.mergeReservation(p.Reservation, now)
	case event.ReservationStatus:
		_, err := s.reservations.UpdateReservation(p.ReservationID, func(r *domain.Reservation) error {
			if p.Previous == "" {
				p.Previous = r.Status
			}
			r.Status = p.Status
			r.UpdatedAt = now
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.TableAssigned:
		_, err := s.reservations.UpdateReservation(p.ReservationID, func(r *domain.Reservation) error {
			r.TableID = p.TableID
			r.UpdatedAt = now
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.ReservationNote:
		if p.Note.ID == "" {
			p.Note.ID = uuid.NewString()
		}
		if p.Note.At.IsZero() {
			p.Note.At = now
		}
		_, err := s.reservations.UpdateReservation(p.ReservationID, func(r *domain.Reservation) error {
			r.Notes = append(r.Notes, p.Note)
			return nil
		})
		return p, s.ignoreMissing(err)
	case event.NotificationCreated:
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.RecipientID == StaffRecipient {
			return p, nil
		}
		return p, s.notifications.SaveNotification(p.Notification)
	default:
		return payload, nil
	}
}

func (s *IngestService) ignoreMissing(err error) error {
	if errors.Is(err, errors.ErrNotFound) {
		s.log.Debug("Entity unknown to the read model, event relayed only", "error", err)
		return nil
	}
	return err
}

// mergeOrder stores a snapshot sent by the backend. Notes are written
// through the hub, so a snapshot without notes keeps the stored ones.
func (s *IngestService) mergeOrder(incoming domain.Order, now time.Time) error {
	_, err := s.orders.UpdateOrder(incoming.ID, func(stored *domain.Order) error {
		merged := incoming
		if len(merged.Notes) == 0 {
			merged.Notes = stored.Notes
		}
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = stored.CreatedAt
		}
		if merged.Status == "" {
			merged.Status = stored.Status
		}
		*stored = stampOrder(merged, now)
		return nil
	})
	if errors.Is(err, errors.ErrNotFound) {
		return s.orders.SaveOrder(stampOrder(incoming, now))
	}
	return err
}

func (s *IngestService) mergeReservation(incoming domain.Reservation, now time.Time) error {
	stamp := func(r domain.Reservation) domain.Reservation {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		return r
	}
	_, err := s.reservations.UpdateReservation(incoming.ID, func(stored *domain.Reservation) error {
		merged := incoming
		if len(merged.Notes) == 0 {
			merged.Notes = stored.Notes
		}
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = stored.CreatedAt
		}
		*stored = stamp(merged)
		return nil
	})
	if errors.Is(err, errors.ErrNotFound) {
		return s.reservations.SaveReservation(stamp(incoming))
	}
	return err
}

func stampOrder(order domain.Order, now time.Time) domain.Order {
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	return order
}

// DefaultRooms is where an event goes when the producer does not say.
func DefaultRooms(payload event.Payload) []domain.RoomID {
	staff := domain.StaffRoom()
	switch p := payload.(type) {
	case event.NewChatMessage:
		return []domain.RoomID{domain.ChatRoom(p.SessionID)}
	case event.ChatSessionOpened:
		return []domain.RoomID{staff}
	case event.ChatSessionStatus:
		return []domain.RoomID{domain.ChatRoom(p.SessionID), staff}
	case event.MessagesRead:
		return []domain.RoomID{domain.ChatRoom(p.SessionID)}
	case event.TypingStarted:
		return []domain.RoomID{domain.ChatRoom(p.SessionID)}
	case event.TypingStopped:
		return []domain.RoomID{domain.ChatRoom(p.SessionID)}
	case event.OrderPlaced:
		return []domain.RoomID{domain.OrderRoom(p.ID), staff}
	case event.OrderChanged:
		return []domain.RoomID{domain.OrderRoom(p.ID), staff}
	case event.OrderStatus:
		return []domain.RoomID{domain.OrderRoom(p.OrderID), staff}
	case event.PaymentCompleted:
		return []domain.RoomID{domain.OrderRoom(p.OrderID), staff}
	case event.ItemStatus:
		return []domain.RoomID{domain.OrderRoom(p.OrderID), staff}
	case event.NoteAdded:
		if p.Note.Internal {
			return []domain.RoomID{staff}
		}
		return []domain.RoomID{domain.OrderRoom(p.OrderID), staff}
	case event.SupportRequested:
		return []domain.RoomID{staff, domain.OrderRoom(p.OrderID)}
	case event.ReservationPlaced:
		return []domain.RoomID{domain.ReservationRoom(p.ID), staff}
	case event.ReservationStatus:
		return []domain.RoomID{domain.ReservationRoom(p.ReservationID), staff}
	case event.TableAssigned:
		return []domain.RoomID{domain.ReservationRoom(p.ReservationID), staff, domain.TableRoom(p.TableID)}
	case event.ReservationNote:
		if p.Note.Internal {
			return []domain.RoomID{staff}
		}
		return []domain.RoomID{domain.ReservationRoom(p.ReservationID), staff}
	case event.NotificationCreated:
		if p.RecipientID == StaffRecipient {
			return []domain.RoomID{staff}
		}
		return []domain.RoomID{domain.UserRoom(p.RecipientID)}
	case event.NotificationsRead:
		return []domain.RoomID{domain.UserRoom(p.RecipientID)}
	case event.TableStatus:
		return []domain.RoomID{domain.TableRoom(p.TableID), staff}
	default:
		return []domain.RoomID{staff}
	}
}
