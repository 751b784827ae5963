package event

import (
	"time"

	"restaurant-hub/domain"

	"github.com/oklog/ulid/v2"
)

// Type is the canonical name of an event.
type Type string

const (
	ChatNewMessage           Type = "chat.new_message"
	ChatSessionNew           Type = "chat.session_new"
	ChatSessionStatusChanged Type = "chat.session_status_changed"
	ChatMessagesRead         Type = "chat.messages_read"
	ChatTyping               Type = "chat.typing"
	ChatTypingStopped        Type = "chat.typing_stopped"
	OrderCreated             Type = "order.created"
	OrderUpdated             Type = "order.updated"
	OrderStatusChanged       Type = "order.status_changed"
	OrderPaymentCompleted    Type = "order.payment_completed"
	OrderItemStatusChanged   Type = "order.item_status_changed"
	OrderNoteAdded           Type = "order.note_added"
	OrderSupportRequested    Type = "order.support_requested"
	ReservationCreated       Type = "reservation.created"
	ReservationStatusChanged Type = "reservation.status_changed"
	ReservationTableAssigned Type = "reservation.table_assigned"
	ReservationNoteAdded     Type = "reservation.note_added"
	NotificationNew          Type = "notification.new"
	NotificationRead         Type = "notification.read"
	TableStatusChanged       Type = "table.status_changed"
)

// Payload is implemented by every typed event body. The set of
// implementations is closed and listed in catalog.go.
type Payload interface {
	EventType() Type
}

// DomainEvent is the unit handed to the dispatcher. The payload is never
// mutated after construction.
type DomainEvent struct {
	ID          string
	Type        Type
	Aliases     []string
	TargetRooms []domain.RoomID
	Payload     Payload
	EmittedAt   time.Time
}

// New stamps a payload with an id, its legacy aliases and the emission time.
func New(payload Payload, rooms ...domain.RoomID) DomainEvent {
	t := payload.EventType()
	return DomainEvent{
		ID:          ulid.Make().String(),
		Type:        t,
		Aliases:     AliasesOf(t),
		TargetRooms: rooms,
		Payload:     payload,
		EmittedAt:   time.Now().UTC(),
	}
}

// Names lists the canonical type followed by every alias.
func (e DomainEvent) Names() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	names = append(names, string(e.Type))
	return append(names, e.Aliases...)
}
