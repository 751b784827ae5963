package runtime

import (
	"context"
	"log/slog"
	"sync"

	"restaurant-hub/domain"
	"restaurant-hub/errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type fakeTransport struct {
	mu     sync.Mutex
	id     string
	frames [][]byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{id: uuid.NewString()}
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.ErrTransportGone
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// types returns the type of every frame received so far.
func (f *fakeTransport) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.frames))
	for _, raw := range f.frames {
		var frame struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw, &frame)
		types = append(types, frame.Type)
	}
	return types
}

type staticOwners map[domain.RoomID]string

func (s staticOwners) OwnerOf(_ context.Context, room domain.RoomID) (string, error) {
	owner, ok := s[room]
	if !ok {
		return "", errors.ErrNotFound
	}
	return owner, nil
}

type hub struct {
	registry   *Registry
	router     *Router
	dispatcher *Dispatcher
}

func newHub(owners staticOwners) hub {
	log := slog.Default()
	registry := NewRegistry(log)
	return hub{
		registry:   registry,
		router:     NewRouter(log, registry, owners),
		dispatcher: NewDispatcher(log, registry, nil),
	}
}

func (h hub) connect(identity domain.Identity) (*fakeTransport, domain.ConnectionID) {
	t := newFakeTransport()
	conn, err := h.registry.Register(t, identity)
	if err != nil {
		panic(err)
	}
	return t, conn.ID
}
