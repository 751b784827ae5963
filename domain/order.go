package domain

import (
	"fmt"
	"time"

	"restaurant-hub/errors"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

var orderProgress = map[OrderStatus]int{
	OrderPending:   0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderDelivered: 3,
	OrderPaid:      4,
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

// CanTransition allows forward moves along the kitchen flow (steps may be
// skipped) and cancellation of any order that is not finished yet.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	from, ok := orderProgress[s]
	if !ok {
		return false
	}
	next, ok := orderProgress[to]
	return ok && next > from
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
	ItemCancelled ItemStatus = "cancelled"
)

type OrderItem struct {
	ID       string     `json:"itemId" validate:"required"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity" validate:"gte=0"`
	Status   ItemStatus `json:"status"`
}

type OrderNote struct {
	ID       string    `json:"noteId"`
	AuthorID string    `json:"authorId"`
	Author   string    `json:"author"`
	Content  string    `json:"content"`
	Internal bool      `json:"internal"`
	At       time.Time `json:"at"`
}

// Order is the slice of an order the hub needs to route and notify.
// A walk-in order placed without an account has no CustomerID.
type Order struct {
	ID            string      `json:"orderId" validate:"required"`
	CustomerID    string      `json:"customerId,omitempty"`
	TableID       string      `json:"tableId,omitempty"`
	Status        OrderStatus `json:"status" validate:"omitempty,oneof=pending preparing ready delivered paid cancelled"`
	Items         []OrderItem `json:"items,omitempty" validate:"dive"`
	Notes         []OrderNote `json:"notes,omitempty"`
	Total         float64     `json:"total"`
	PaymentStatus string      `json:"paymentStatus,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// SetStatus applies a status change, refusing moves the kitchen flow forbids.
func (o *Order) SetStatus(to OrderStatus, at time.Time) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: order %s from %s to %s", errors.ErrInvalidTransition, o.ID, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

func (o *Order) SetItemStatus(itemID string, to ItemStatus, at time.Time) error {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].Status = to
			o.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("item %s of order %s: %w", itemID, o.ID, errors.ErrNotFound)
}

// PublicNotes filters out staff-only notes.
func (o Order) PublicNotes() []OrderNote {
	notes := make([]OrderNote, 0, len(o.Notes))
	for _, n := range o.Notes {
		if !n.Internal {
			notes = append(notes, n)
		}
	}
	return notes
}
