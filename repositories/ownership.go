package repositories

import (
	"context"
	"fmt"

	"restaurant-hub/domain"
)

// Ownership resolves room owners from the stored entities.
type Ownership struct {
	chats        IChatRepository
	orders       IOrderRepository
	reservations IReservationRepository
}

func NewOwnership(chats IChatRepository, orders IOrderRepository, reservations IReservationRepository) Ownership {
	return Ownership{chats: chats, orders: orders, reservations: reservations}
}

func (o Ownership) OwnerOf(_ context.Context, room domain.RoomID) (string, error) {
	switch room.Entity {
	case domain.EntityChatSession:
		session, err := o.chats.GetSession(room.ID)
		if err != nil {
			return "", fmt.Errorf("chat session %s: %w", room.ID, err)
		}
		return session.CustomerID, nil
	case domain.EntityOrder:
		order, err := o.orders.GetOrder(room.ID)
		if err != nil {
			return "", fmt.Errorf("order %s: %w", room.ID, err)
		}
		return order.CustomerID, nil
	case domain.EntityReservation:
		reservation, err := o.reservations.GetReservation(room.ID)
		if err != nil {
			return "", fmt.Errorf("reservation %s: %w", room.ID, err)
		}
		return reservation.CustomerID, nil
	case domain.EntityUser:
		return room.ID, nil
	default:
		return "", nil
	}
}
