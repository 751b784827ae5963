package event

import (
	"time"

	"restaurant-hub/domain"
)

type Reader struct {
	UserID string              `json:"userId,omitempty"`
	Kind   domain.IdentityKind `json:"kind"`
	Name   string              `json:"name"`
}

func ReaderOf(identity domain.Identity) Reader {
	return Reader{UserID: identity.UserID, Kind: identity.Kind, Name: identity.DisplayName()}
}

type NewChatMessage struct {
	domain.ChatMessage
}

type ChatSessionOpened struct {
	domain.ChatSession
}

type ChatSessionStatus struct {
	SessionID string                   `json:"sessionId" validate:"required"`
	Status    domain.ChatSessionStatus `json:"status" validate:"required,oneof=active waiting closed"`
	Previous  domain.ChatSessionStatus `json:"previousStatus,omitempty"`
	AgentID   string                   `json:"agentId,omitempty"`
	ChangedBy Reader                   `json:"changedBy"`
}

type MessagesRead struct {
	SessionID  string    `json:"sessionId" validate:"required"`
	MessageIDs []string  `json:"messageIds"`
	Reader     Reader    `json:"reader"`
	ReadAt     time.Time `json:"readAt"`
}

type TypingStarted struct {
	SessionID string `json:"sessionId" validate:"required"`
	Who       Reader `json:"user"`
}

type TypingStopped struct {
	SessionID string `json:"sessionId" validate:"required"`
	Who       Reader `json:"user"`
}

type OrderPlaced struct {
	domain.Order
}

type OrderChanged struct {
	domain.Order
}

type OrderStatus struct {
	OrderID   string             `json:"orderId" validate:"required"`
	Status    domain.OrderStatus `json:"status" validate:"required"`
	Previous  domain.OrderStatus `json:"previousStatus,omitempty"`
	Note      string             `json:"note,omitempty"`
	ChangedBy Reader             `json:"changedBy"`
	ChangedAt time.Time          `json:"changedAt"`
}

type PaymentCompleted struct {
	OrderID string    `json:"orderId" validate:"required"`
	Amount  float64   `json:"amount" validate:"gte=0"`
	Method  string    `json:"method,omitempty"`
	PaidAt  time.Time `json:"paidAt"`
}

type ItemStatus struct {
	OrderID   string            `json:"orderId" validate:"required"`
	ItemID    string            `json:"itemId" validate:"required"`
	Status    domain.ItemStatus `json:"status" validate:"required"`
	ChangedBy Reader            `json:"changedBy"`
}

type NoteAdded struct {
	OrderID string           `json:"orderId" validate:"required"`
	Note    domain.OrderNote `json:"note"`
}

type SupportRequested struct {
	OrderID     string    `json:"orderId" validate:"required"`
	TableID     string    `json:"tableId,omitempty"`
	Message     string    `json:"message,omitempty"`
	RequestedBy Reader    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
}

type ReservationPlaced struct {
	domain.Reservation
}

type ReservationStatus struct {
	ReservationID string                   `json:"reservationId" validate:"required"`
	Status        domain.ReservationStatus `json:"status" validate:"required"`
	Previous      domain.ReservationStatus `json:"previousStatus,omitempty"`
	ChangedBy     Reader                   `json:"changedBy"`
}

type TableAssigned struct {
	ReservationID string `json:"reservationId" validate:"required"`
	TableID       string `json:"tableId" validate:"required"`
	AssignedBy    Reader `json:"assignedBy"`
}

type ReservationNote struct {
	ReservationID string           `json:"reservationId" validate:"required"`
	Note          domain.OrderNote `json:"note"`
}

type NotificationCreated struct {
	domain.Notification
}

type NotificationsRead struct {
	RecipientID     string    `json:"recipientId" validate:"required"`
	NotificationIDs []string  `json:"notificationIds"`
	ReadAt          time.Time `json:"readAt"`
}

type TableStatus struct {
	TableID string             `json:"tableId" validate:"required"`
	Status  domain.TableStatus `json:"status" validate:"required"`
}

func (NewChatMessage) EventType() Type      { return ChatNewMessage }
func (ChatSessionOpened) EventType() Type   { return ChatSessionNew }
func (ChatSessionStatus) EventType() Type   { return ChatSessionStatusChanged }
func (MessagesRead) EventType() Type        { return ChatMessagesRead }
func (TypingStarted) EventType() Type       { return ChatTyping }
func (TypingStopped) EventType() Type       { return ChatTypingStopped }
func (OrderPlaced) EventType() Type         { return OrderCreated }
func (OrderChanged) EventType() Type        { return OrderUpdated }
func (OrderStatus) EventType() Type         { return OrderStatusChanged }
func (PaymentCompleted) EventType() Type    { return OrderPaymentCompleted }
func (ItemStatus) EventType() Type          { return OrderItemStatusChanged }
func (NoteAdded) EventType() Type           { return OrderNoteAdded }
func (SupportRequested) EventType() Type    { return OrderSupportRequested }
func (ReservationPlaced) EventType() Type   { return ReservationCreated }
func (ReservationStatus) EventType() Type   { return ReservationStatusChanged }
func (TableAssigned) EventType() Type       { return ReservationTableAssigned }
func (ReservationNote) EventType() Type     { return ReservationNoteAdded }
func (NotificationCreated) EventType() Type { return NotificationNew }
func (NotificationsRead) EventType() Type   { return NotificationRead }
func (TableStatus) EventType() Type         { return TableStatusChanged }

// decoders builds a typed payload for each canonical type.
var decoders = map[Type]func(raw []byte) (Payload, error){
	ChatNewMessage:           decodeAs[NewChatMessage],
	ChatSessionNew:           decodeAs[ChatSessionOpened],
	ChatSessionStatusChanged: decodeAs[ChatSessionStatus],
	ChatMessagesRead:         decodeAs[MessagesRead],
	ChatTyping:               decodeAs[TypingStarted],
	ChatTypingStopped:        decodeAs[TypingStopped],
	OrderCreated:             decodeAs[OrderPlaced],
	OrderUpdated:             decodeAs[OrderChanged],
	OrderStatusChanged:       decodeAs[OrderStatus],
	OrderPaymentCompleted:    decodeAs[PaymentCompleted],
	OrderItemStatusChanged:   decodeAs[ItemStatus],
	OrderNoteAdded:           decodeAs[NoteAdded],
	OrderSupportRequested:    decodeAs[SupportRequested],
	ReservationCreated:       decodeAs[ReservationPlaced],
	ReservationStatusChanged: decodeAs[ReservationStatus],
	ReservationTableAssigned: decodeAs[TableAssigned],
	ReservationNoteAdded:     decodeAs[ReservationNote],
	NotificationNew:          decodeAs[NotificationCreated],
	NotificationRead:         decodeAs[NotificationsRead],
	TableStatusChanged:       decodeAs[TableStatus],
}

func Known(t Type) bool {
	_, ok := decoders[t]
	return ok
}

func Types() []Type {
	types := make([]Type, 0, len(decoders))
	for t := range decoders {
		types = append(types, t)
	}
	return types
}
