package domain

import (
	"fmt"
	"strings"

	"restaurant-hub/errors"
)

type EntityType string

const (
	EntityChatSession    EntityType = "chat"
	EntityOrder          EntityType = "order"
	EntityReservation    EntityType = "reservation"
	EntityTable          EntityType = "table"
	EntityUser           EntityType = "user"
	EntityStaffBroadcast EntityType = "staff"
)

// RoomID addresses a broadcast group by the domain entity it follows.
// Rooms only exist while they have members.
type RoomID struct {
	Entity EntityType
	ID     string
}

func ChatRoom(id string) RoomID        { return RoomID{Entity: EntityChatSession, ID: id} }
func OrderRoom(id string) RoomID       { return RoomID{Entity: EntityOrder, ID: id} }
func ReservationRoom(id string) RoomID { return RoomID{Entity: EntityReservation, ID: id} }
func TableRoom(id string) RoomID       { return RoomID{Entity: EntityTable, ID: id} }
func UserRoom(id string) RoomID        { return RoomID{Entity: EntityUser, ID: id} }
func StaffRoom() RoomID                { return RoomID{Entity: EntityStaffBroadcast} }

// String renders the wire form, "order:42" or "staff".
func (r RoomID) String() string {
	if r.Entity == EntityStaffBroadcast {
		return string(EntityStaffBroadcast)
	}
	return string(r.Entity) + ":" + r.ID
}

func (r RoomID) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RoomID) UnmarshalText(text []byte) error {
	parsed, err := ParseRoomID(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func ParseRoomID(s string) (RoomID, error) {
	s = strings.TrimSpace(s)
	if s == string(EntityStaffBroadcast) {
		return StaffRoom(), nil
	}
	entity, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return RoomID{}, fmt.Errorf("%w: malformed room %q", errors.ErrInvalidBody, s)
	}
	switch EntityType(entity) {
	case EntityChatSession, EntityOrder, EntityReservation, EntityTable, EntityUser:
		return RoomID{Entity: EntityType(entity), ID: id}, nil
	default:
		return RoomID{}, fmt.Errorf("%w: unknown room type %q", errors.ErrInvalidBody, entity)
	}
}
