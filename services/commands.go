package services

import (
	"fmt"

	"restaurant-hub/domain"
	"restaurant-hub/errors"
)

// roomBody accepts either a room id ("order:O1") or one of the entity ids
// sent by older clients. Legacy names bound to a fixed room need no body.
type roomBody struct {
	Room          string `json:"room"`
	SessionID     string `json:"sessionId"`
	OrderID       string `json:"orderId"`
	ReservationID string `json:"reservationId"`
	TableID       string `json:"tableId"`
}

func roomOf(cmd domain.Command) (domain.RoomID, error) {
	if room, ok := aliasRooms[cmd.Alias]; ok {
		return room, nil
	}
	body, err := decodeBody[roomBody](cmd.Body)
	if err != nil {
		return domain.RoomID{}, err
	}
	switch {
	case body.Room != "":
		return domain.ParseRoomID(body.Room)
	case body.SessionID != "":
		return domain.ChatRoom(body.SessionID), nil
	case body.OrderID != "":
		return domain.OrderRoom(body.OrderID), nil
	case body.ReservationID != "":
		return domain.ReservationRoom(body.ReservationID), nil
	case body.TableID != "":
		return domain.TableRoom(body.TableID), nil
	default:
		return domain.RoomID{}, fmt.Errorf("%w: room is required", errors.ErrInvalidBody)
	}
}

type sessionBody struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
}

type sendMessageBody struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type markReadBody struct {
	SessionID  string   `json:"sessionId" validate:"required,max=128"`
	MessageIDs []string `json:"messageIds" validate:"required,min=1,max=500,dive,required"`
}

type chatStatusBody struct {
	SessionID string                   `json:"sessionId" validate:"required,max=128"`
	Status    domain.ChatSessionStatus `json:"status" validate:"required,oneof=active waiting closed"`
}

type orderStatusBody struct {
	OrderID string             `json:"orderId" validate:"required,max=128"`
	Status  domain.OrderStatus `json:"status" validate:"required,oneof=pending preparing ready delivered paid cancelled"`
	Note    string             `json:"note" validate:"max=1000"`
}

type itemStatusBody struct {
	OrderID string            `json:"orderId" validate:"required,max=128"`
	ItemID  string            `json:"itemId" validate:"required,max=128"`
	Status  domain.ItemStatus `json:"status" validate:"required,oneof=pending preparing ready served cancelled"`
}

type orderNoteBody struct {
	OrderID string `json:"orderId" validate:"required,max=128"`
	Note    string `json:"note" validate:"required,max=1000"`
	Type    string `json:"type" validate:"omitempty,oneof=public internal"`
}

type supportBody struct {
	OrderID string `json:"orderId" validate:"required,max=128"`
	Message string `json:"message" validate:"max=1000"`
}

type reservationStatusBody struct {
	ReservationID string                   `json:"reservationId" validate:"required,max=128"`
	Status        domain.ReservationStatus `json:"status" validate:"required,oneof=pending confirmed checked_in completed cancelled no_show"`
}

type assignTableBody struct {
	ReservationID string `json:"reservationId" validate:"required,max=128"`
	TableID       string `json:"tableId" validate:"required,max=128"`
}

type reservationNoteBody struct {
	ReservationID string `json:"reservationId" validate:"required,max=128"`
	Note          string `json:"note" validate:"required,max=1000"`
	Type          string `json:"type" validate:"omitempty,oneof=public internal"`
}

type notificationsReadBody struct {
	NotificationIDs []string `json:"notificationIds" validate:"max=500,dive,required"`
}
