package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"restaurant-hub/auth"
	"restaurant-hub/domain"
	"restaurant-hub/errors"
	"restaurant-hub/services"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const defaultNotificationLimit = 50

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// stats serves the latest sampled process stats next to live hub counts.
func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.monitor.GetLatest()
	snapshot.Hub = s.registry.Stats()
	s.writeJSON(w, http.StatusOK, snapshot)
}

type ingestAccepted struct {
	EventID string          `json:"eventId"`
	Type    string          `json:"type"`
	Rooms   []domain.RoomID `json:"rooms"`
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	if err := s.verifier.Verify(r.Header.Get(auth.ServiceTokenHeader)); err != nil {
		s.writeError(w, err)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, errors.Join(errors.ErrInvalidBody, err))
		return
	}
	var request services.IngestRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		s.writeError(w, errors.Join(errors.ErrInvalidBody, err))
		return
	}
	evt, err := s.api.Ingest.Ingest(r.Context(), request)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, ingestAccepted{EventID: evt.ID, Type: string(evt.Type), Rooms: evt.TargetRooms})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.api.Orders.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.api.Reservations.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reservation)
}

type messagesPage struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextCursor *string              `json:"nextCursor,omitempty"`
}

func (s *Server) getChatMessages(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := s.api.Chat.History(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), cursor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	s.writeJSON(w, http.StatusOK, messagesPage{Messages: messages, NextCursor: next})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, errors.Join(errors.ErrInvalidBody, err))
			return
		}
		limit = parsed
	}
	notifications, err := s.api.Notifications.List(r.Context(), identityFrom(r.Context()), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error("Response not encodable", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

type errorBody struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	if kind == errors.KindInternal {
		s.log.Error("Request failed", "error", err)
	}
	s.writeJSON(w, statusOf(kind), map[string]errorBody{"error": {Kind: kind, Message: errors.PublicMessage(err)}})
}

func statusOf(kind errors.Kind) int {
	switch kind {
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindInvalidBody:
		return http.StatusBadRequest
	case errors.KindUnauthenticated:
		return http.StatusUnauthorized
	case errors.KindRateLimited:
		return http.StatusTooManyRequests
	case errors.KindTransportGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
