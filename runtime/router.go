package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"restaurant-hub/contract"
	"restaurant-hub/domain"
	"restaurant-hub/errors"
)

// Router decides who may join which room. Membership itself lives in the
// Registry.
type Router struct {
	log      *slog.Logger
	registry *Registry
	owners   contract.OwnershipResolver
}

func NewRouter(log *slog.Logger, registry *Registry, owners contract.OwnershipResolver) *Router {
	return &Router{log: log, registry: registry, owners: owners}
}

// Authorize applies the join policy of the room type:
//   - staff may join any room, even one whose entity is not known yet
//   - chat, order and reservation rooms need the entity owner
//     (guest entities have no owner and are open)
//   - table rooms are public
//   - a user room is reserved to that user
//   - the staff broadcast room is reserved to staff
func (r *Router) Authorize(ctx context.Context, room domain.RoomID, identity domain.Identity) error {
	switch room.Entity {
	case domain.EntityTable:
		return nil
	case domain.EntityStaffBroadcast:
		if identity.IsStaff() {
			return nil
		}
		return fmt.Errorf("%w: %s is reserved to staff", errors.ErrForbidden, room)
	case domain.EntityUser:
		if identity.IsStaff() || identity.Owns(room.ID) {
			return nil
		}
		return fmt.Errorf("%w: %s belongs to another user", errors.ErrForbidden, room)
	case domain.EntityChatSession, domain.EntityOrder, domain.EntityReservation:
		if identity.IsStaff() {
			return nil
		}
		owner, err := r.owners.OwnerOf(ctx, room)
		if err != nil {
			return err
		}
		if owner == "" || identity.Owns(owner) {
			return nil
		}
		return fmt.Errorf("%w: %s belongs to another customer", errors.ErrForbidden, room)
	default:
		return fmt.Errorf("%w: unknown room type %q", errors.ErrInvalidBody, room.Entity)
	}
}

// Join adds the connection to the room once the policy allows it.
// Joining a room twice is a no-op.
func (r *Router) Join(ctx context.Context, id domain.ConnectionID, room domain.RoomID, identity domain.Identity) error {
	if err := r.Authorize(ctx, room, identity); err != nil {
		r.log.Debug("Join denied", "connection_id", id, "room", room.String(), "error", err)
		return err
	}
	if err := r.registry.addMember(id, room); err != nil {
		return err
	}
	r.log.Debug("Joined room", "connection_id", id, "room", room.String())
	return nil
}

// Leave is a no-op when the connection is not a member.
func (r *Router) Leave(id domain.ConnectionID, room domain.RoomID) {
	r.registry.removeMember(id, room)
}

func (r *Router) MembersOf(room domain.RoomID) []domain.ConnectionID {
	return r.registry.MembersOf(room)
}

func (r *Router) IsMember(id domain.ConnectionID, room domain.RoomID) bool {
	return r.registry.IsMember(id, room)
}

// AutoJoin puts a fresh connection in the rooms its identity always
// follows: its own user room, plus the staff room for staff.
func (r *Router) AutoJoin(ctx context.Context, id domain.ConnectionID, identity domain.Identity) []domain.RoomID {
	var rooms []domain.RoomID
	if identity.IsAuthenticated() {
		rooms = append(rooms, domain.UserRoom(identity.UserID))
	}
	if identity.IsStaff() {
		rooms = append(rooms, domain.StaffRoom())
	}
	joined := make([]domain.RoomID, 0, len(rooms))
	for _, room := range rooms {
		if err := r.Join(ctx, id, room, identity); err != nil {
			r.log.Warn("Auto join failed", "connection_id", id, "room", room.String(), "error", err)
			continue
		}
		joined = append(joined, room)
	}
	return joined
}
