package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"restaurant-hub/contract"
	"restaurant-hub/domain"
	"restaurant-hub/errors"
	"restaurant-hub/metrics"
)

type Set map[domain.ConnectionID]struct{}

type session struct {
	transport   contract.Transport
	identity    domain.Identity
	rooms       map[domain.RoomID]struct{}
	connectedAt time.Time
	lastSeenAt  time.Time
}

// Registry owns every live connection and the room membership derived
// from them. One lock guards both maps so a reader never sees a
// connection that is half removed from its rooms.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	sessions    map[domain.ConnectionID]*session
	roomMembers map[domain.RoomID]Set
	now         func() time.Time
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:         log,
		sessions:    make(map[domain.ConnectionID]*session),
		roomMembers: make(map[domain.RoomID]Set),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register records a transport handed over by the handshake. The
// connection id is the transport id.
func (r *Registry) Register(t contract.Transport, identity domain.Identity) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.ConnectionID(t.ID())
	if _, exists := r.sessions[id]; exists {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrDuplicateConnection, id)
	}
	now := r.now()
	s := &session{
		transport:   t,
		identity:    identity,
		rooms:       make(map[domain.RoomID]struct{}),
		connectedAt: now,
		lastSeenAt:  now,
	}
	r.sessions[id] = s
	metrics.ConnectionsActive.Set(float64(len(r.sessions)))
	r.log.Debug("Connection registered", "connection_id", id, "kind", identity.Kind.String(), "user_id", identity.UserID)
	return snapshot(id, s), nil
}

// Deregister forgets a connection and drops it from every room.
// Calling it for an unknown id does nothing.
func (r *Registry) Deregister(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	for room := range s.rooms {
		r.dropMember(id, room)
	}
	delete(r.sessions, id)
	metrics.ConnectionsActive.Set(float64(len(r.sessions)))
	metrics.RoomsActive.Set(float64(len(r.roomMembers)))
	r.log.Debug("Connection deregistered", "connection_id", id, "rooms", len(s.rooms))
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.Connection{}, fmt.Errorf("connection %s: %w", id, errors.ErrNotFound)
	}
	return snapshot(id, s), nil
}

// Touch refreshes the last activity of a connection.
func (r *Registry) Touch(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastSeenAt = r.now()
	}
}

// Deliver hands a frame to the transport without waiting on it. A
// transport that is gone is skipped. A transport that refuses the frame
// is too slow to keep up and gets closed; its read loop deregisters it.
func (r *Registry) Deliver(id domain.ConnectionID, frame []byte) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		metrics.DeliveriesDropped.WithLabelValues("transport_gone").Inc()
		r.log.Debug(errors.ErrTransportGone.Error(), "connection_id", id)
		return
	}
	if err := s.transport.Send(frame); err != nil {
		metrics.DeliveriesDropped.WithLabelValues("send_failed").Inc()
		r.log.Debug("Delivery failed, closing transport", "connection_id", id, "error", err)
		_ = s.transport.Close()
		return
	}
	metrics.DeliveriesTotal.Inc()
}

// Disconnect closes the transport of a connection and deregisters it.
func (r *Registry) Disconnect(id domain.ConnectionID) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		_ = s.transport.Close()
	}
	r.Deregister(id)
}

// DisconnectAll closes every transport, used on shutdown.
func (r *Registry) DisconnectAll() int {
	r.mu.RLock()
	ids := make([]domain.ConnectionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Disconnect(id)
	}
	return len(ids)
}

func (r *Registry) addMember(id domain.ConnectionID, room domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("connection %s: %w", id, errors.ErrNotFound)
	}
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][id] = struct{}{}
	s.rooms[room] = struct{}{}
	metrics.RoomsActive.Set(float64(len(r.roomMembers)))
	return nil
}

func (r *Registry) removeMember(id domain.ConnectionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		delete(s.rooms, room)
	}
	r.dropMember(id, room)
	metrics.RoomsActive.Set(float64(len(r.roomMembers)))
}

// dropMember must be called with the write lock held.
func (r *Registry) dropMember(id domain.ConnectionID, room domain.RoomID) {
	members, ok := r.roomMembers[room]
	if !ok {
		return
	}
	delete(members, id)
	// If no one is left in the room, remove the room entry entirely
	if len(members) == 0 {
		delete(r.roomMembers, room)
	}
}

func (r *Registry) MembersOf(room domain.RoomID) []domain.ConnectionID {
	return r.MembersOfAll([]domain.RoomID{room})
}

// MembersOfAll returns the union of the members of the given rooms, each
// connection once, in a stable order.
func (r *Registry) MembersOfAll(rooms []domain.RoomID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(Set)
	var ids []domain.ConnectionID
	for _, room := range rooms {
		for id := range r.roomMembers[room] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) IsMember(id domain.ConnectionID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roomMembers[room][id]
	return ok
}

// Idle lists connections with no activity since the given instant.
func (r *Registry) Idle(since time.Time) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []domain.ConnectionID
	for id, s := range r.sessions {
		if s.lastSeenAt.Before(since) {
			ids = append(ids, id)
		}
	}
	return ids
}

type Stats struct {
	Connections int            `json:"connections"`
	Rooms       int            `json:"rooms"`
	Memberships int            `json:"memberships"`
	ByKind      map[string]int `json:"byKind"`
	ByEntity    map[string]int `json:"roomsByEntity"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Connections: len(r.sessions),
		Rooms:       len(r.roomMembers),
		ByKind:      make(map[string]int),
		ByEntity:    make(map[string]int),
	}
	for _, s := range r.sessions {
		stats.ByKind[s.identity.Kind.String()]++
		stats.Memberships += len(s.rooms)
	}
	for room := range r.roomMembers {
		stats.ByEntity[string(room.Entity)]++
	}
	return stats
}

func snapshot(id domain.ConnectionID, s *session) domain.Connection {
	rooms := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].String() < rooms[j].String() })
	return domain.Connection{
		ID:          id,
		Identity:    s.identity,
		Rooms:       rooms,
		ConnectedAt: s.connectedAt,
		LastSeenAt:  s.lastSeenAt,
	}
}
