package event

import (
	"fmt"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/errors"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

func decodeAs[T Payload](raw []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	return p, nil
}

// Decode turns a raw payload into the typed payload registered for t.
func Decode(t Type, raw []byte) (Payload, error) {
	decode, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, t)
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return decode(raw)
}

// Frame is what a client receives for one event name.
type Frame struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// EncodeFrames renders one frame per name of the event. The payload is
// marshalled once and shared by every frame.
func EncodeFrames(e DomainEvent) ([][]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	names := e.Names()
	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		frame, err := json.Marshal(Frame{ID: e.ID, Type: name, Payload: payload, EmittedAt: e.EmittedAt})
		if err != nil {
			return nil, fmt.Errorf("marshal %s frame: %w", name, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// SessionWelcome is sent once to a fresh connection. It never goes
// through a room.
const SessionWelcome = "session.welcome"

// EncodeDirect renders a frame addressed to a single connection.
func EncodeDirect(name string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return json.Marshal(Frame{ID: ulid.Make().String(), Type: name, Payload: raw, EmittedAt: time.Now().UTC()})
}

type wireEvent struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Aliases     []string        `json:"aliases,omitempty"`
	TargetRooms []domain.RoomID `json:"rooms"`
	Payload     json.RawMessage `json:"payload"`
	EmittedAt   time.Time       `json:"emittedAt"`
}

func (e DomainEvent) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{
		ID:          e.ID,
		Type:        e.Type,
		Aliases:     e.Aliases,
		TargetRooms: e.TargetRooms,
		Payload:     payload,
		EmittedAt:   e.EmittedAt,
	})
}

func (e *DomainEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	payload, err := Decode(w.Type, w.Payload)
	if err != nil {
		return err
	}
	*e = DomainEvent{
		ID:          w.ID,
		Type:        w.Type,
		Aliases:     w.Aliases,
		TargetRooms: w.TargetRooms,
		Payload:     payload,
		EmittedAt:   w.EmittedAt,
	}
	return nil
}

// Envelope carries an event between hub nodes. Origin lets a node skip
// the copies of its own events.
type Envelope struct {
	Origin string      `json:"origin"`
	Event  DomainEvent `json:"event"`
}
