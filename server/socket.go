package server

import (
	"context"
	"net/http"

	"restaurant-hub/auth"
	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
	"restaurant-hub/metrics"
	"restaurant-hub/transport"

	"github.com/goccy/go-json"
)

// Welcome tells a fresh connection who it is and which rooms it already
// follows. Any other room has to be joined again after a reconnect.
type Welcome struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
	Identity     domain.Identity     `json:"identity"`
	Rooms        []domain.RoomID     `json:"rooms"`
}

// socket runs the handshake then serves the connection until it leaves.
// Frames of one connection are handled one after the other.
func (s *Server) socket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identities.Resolve(auth.TokenFromRequest(r))
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues("unknown", "unauthenticated").Inc()
		s.log.Debug("Handshake refused", "remote_addr", r.RemoteAddr, "error", err)
		s.writeError(w, err)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues(identity.Kind.String(), "upgrade_failed").Inc()
		s.log.Debug("Upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	conn := transport.NewConn(ws, s.log, s.config.SendBufferSize)
	connection, err := s.registry.Register(conn, identity)
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues(identity.Kind.String(), "register_failed").Inc()
		s.log.Error("Connection not registered", "error", err)
		_ = conn.Close()
		return
	}
	id := connection.ID
	defer func() {
		s.registry.Deregister(id)
		s.handler.Forget(id)
	}()
	metrics.HandshakesTotal.WithLabelValues(identity.Kind.String(), "accepted").Inc()

	ctx := context.WithoutCancel(r.Context())
	rooms := s.router.AutoJoin(ctx, id, identity)
	welcome, err := event.EncodeDirect(event.SessionWelcome, Welcome{ConnectionID: id, Identity: identity, Rooms: rooms})
	if err != nil {
		s.log.Error("Welcome not encodable", "connection_id", id, "error", err)
	} else if err := conn.Send(welcome); err != nil {
		s.log.Debug("Welcome not sent", "connection_id", id, "error", err)
	}

	err = conn.Serve(func(frame []byte) {
		reply := s.handler.HandleFrame(ctx, id, identity, frame)
		raw, err := json.Marshal(reply)
		if err != nil {
			s.log.Error("Reply not encodable", "connection_id", id, "verb", reply.Verb, "error", err)
			return
		}
		if err := conn.Send(raw); err != nil {
			s.log.Debug("Reply dropped", "connection_id", id, "error", err)
		}
	}, func() { s.registry.Touch(id) })
	if err != nil {
		s.log.Debug("Connection ended with an error", "connection_id", id, "error", err)
	}
}
