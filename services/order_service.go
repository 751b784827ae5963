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

	"github.com/google/uuid"
)

type IOrderService interface {
	UpdateStatus(ctx context.Context, issuer domain.Identity, orderID string, status domain.OrderStatus, note string) (domain.Order, error)
	UpdateItemStatus(ctx context.Context, issuer domain.Identity, orderID, itemID string, status domain.ItemStatus) (domain.Order, error)
	AddNote(ctx context.Context, issuer domain.Identity, orderID, content string, internal bool) (domain.OrderNote, error)
	RequestSupport(ctx context.Context, issuer domain.Identity, orderID, message string) error
	Get(ctx context.Context, viewer domain.Identity, orderID string) (domain.Order, error)
}

type OrderService struct {
	log        *slog.Logger
	repository repositories.IOrderRepository
	publisher  contract.Publisher
	now        func() time.Time
}

func NewOrderService(log *slog.Logger, repository repositories.IOrderRepository, publisher contract.Publisher) *OrderService {
	return &OrderService{
		log:        log,
		repository: repository,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UpdateStatus is reserved to staff. The order and staff rooms hear about
// the change only once it is stored.
func (s *OrderService) UpdateStatus(_ context.Context, issuer domain.Identity, orderID string, status domain.OrderStatus, note string) (domain.Order, error) {
	if !issuer.IsStaff() {
		return domain.Order{}, fmt.Errorf("%w: only staff may change an order status", errors.ErrForbidden)
	}
	at := s.now()
	var previous domain.OrderStatus
	order, err := s.repository.UpdateOrder(orderID, func(order *domain.Order) error {
		previous = order.Status
		return order.SetStatus(status, at)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publisher.Publish(event.New(event.OrderStatus{
		OrderID:   orderID,
		Status:    status,
		Previous:  previous,
		Note:      note,
		ChangedBy: event.ReaderOf(issuer),
		ChangedAt: at,
	}, domain.OrderRoom(orderID), domain.StaffRoom()))
	s.log.Debug("Order status changed", "order_id", orderID, "from", previous, "to", status)
	return order, nil
}

func (s *OrderService) UpdateItemStatus(_ context.Context, issuer domain.Identity, orderID, itemID string, status domain.ItemStatus) (domain.Order, error) {
	if !issuer.IsStaff() {
		return domain.Order{}, fmt.Errorf("%w: only staff may change an item status", errors.ErrForbidden)
	}
	at := s.now()
	order, err := s.repository.UpdateOrder(orderID, func(order *domain.Order) error {
		return order.SetItemStatus(itemID, status, at)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publisher.Publish(event.New(event.ItemStatus{
		OrderID:   orderID,
		ItemID:    itemID,
		Status:    status,
		ChangedBy: event.ReaderOf(issuer),
	}, domain.OrderRoom(orderID), domain.StaffRoom()))
	return order, nil
}

// AddNote lets the order owner and staff annotate an order. Internal notes
// are written by staff and only reach the staff room.
func (s *OrderService) AddNote(_ context.Context, issuer domain.Identity, orderID, content string, internal bool) (domain.OrderNote, error) {
	if internal && !issuer.IsStaff() {
		return domain.OrderNote{}, fmt.Errorf("%w: internal notes are reserved to staff", errors.ErrForbidden)
	}
	if err := s.authorizeOwner(issuer, orderID); err != nil {
		return domain.OrderNote{}, err
	}
	note := domain.OrderNote{
		ID:       uuid.NewString(),
		AuthorID: issuer.UserID,
		Author:   issuer.DisplayName(),
		Content:  content,
		Internal: internal,
		At:       s.now(),
	}
	if _, err := s.repository.UpdateOrder(orderID, func(order *domain.Order) error {
		order.Notes = append(order.Notes, note)
		return nil
	}); err != nil {
		return domain.OrderNote{}, err
	}

	rooms := []domain.RoomID{domain.StaffRoom()}
	if !internal {
		rooms = append(rooms, domain.OrderRoom(orderID))
	}
	s.publisher.Publish(event.New(event.NoteAdded{OrderID: orderID, Note: note}, rooms...))
	return note, nil
}

func (s *OrderService) RequestSupport(_ context.Context, issuer domain.Identity, orderID, message string) error {
	order, err := s.repository.GetOrder(orderID)
	if err != nil {
		return err
	}
	if !canView(issuer, order.CustomerID) {
		return fmt.Errorf("%w: order %s belongs to another customer", errors.ErrForbidden, orderID)
	}
	s.publisher.Publish(event.New(event.SupportRequested{
		OrderID:     orderID,
		TableID:     order.TableID,
		Message:     message,
		RequestedBy: event.ReaderOf(issuer),
		RequestedAt: s.now(),
	}, domain.StaffRoom(), domain.OrderRoom(orderID)))
	return nil
}

// Get returns the order with the join policy of its room. Customers never
// see internal notes.
func (s *OrderService) Get(_ context.Context, viewer domain.Identity, orderID string) (domain.Order, error) {
	order, err := s.repository.GetOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !canView(viewer, order.CustomerID) {
		return domain.Order{}, fmt.Errorf("%w: order %s belongs to another customer", errors.ErrForbidden, orderID)
	}
	if !viewer.IsStaff() {
		order.Notes = order.PublicNotes()
	}
	return order, nil
}

func (s *OrderService) authorizeOwner(issuer domain.Identity, orderID string) error {
	order, err := s.repository.GetOrder(orderID)
	if err != nil {
		return err
	}
	if !canView(issuer, order.CustomerID) {
		return fmt.Errorf("%w: order %s belongs to another customer", errors.ErrForbidden, orderID)
	}
	return nil
}
