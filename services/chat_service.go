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
	"restaurant-hub/moderation"
	"restaurant-hub/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// membership is the read side of the room router.
type membership interface {
	IsMember(id domain.ConnectionID, room domain.RoomID) bool
}

type IChatService interface {
	SendMessage(ctx context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID, content string) (domain.ChatMessage, error)
	MarkRead(ctx context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID string, messageIDs []string) ([]string, error)
	Typing(ctx context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID string, started bool) error
	UpdateStatus(ctx context.Context, issuer domain.Identity, sessionID string, status domain.ChatSessionStatus) (domain.ChatSession, error)
	History(ctx context.Context, viewer domain.Identity, sessionID string, cursor *string) ([]domain.ChatMessage, *string, error)
}

type ChatService struct {
	log        *slog.Logger
	repository repositories.IChatRepository
	members    membership
	publisher  contract.Publisher
	moderator  moderation.Moderator
	now        func() time.Time
}

func NewChatService(log *slog.Logger,
	repository repositories.IChatRepository,
	members membership,
	publisher contract.Publisher,
	moderator moderation.Moderator) *ChatService {
	return &ChatService{
		log:        log,
		repository: repository,
		members:    members,
		publisher:  publisher,
		moderator:  moderator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores a moderated message, then publishes it to the chat
// room. Nothing is published when the store refuses the message.
func (s *ChatService) SendMessage(_ context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID, content string) (domain.ChatMessage, error) {
	room := domain.ChatRoom(sessionID)
	if !s.members.IsMember(connID, room) {
		return domain.ChatMessage{}, fmt.Errorf("%w: join %s before writing to it", errors.ErrForbidden, room)
	}
	session, err := s.repository.GetSession(sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if session.Status == domain.ChatClosed {
		return domain.ChatMessage{}, fmt.Errorf("%w: chat session %s is closed", errors.ErrInvalidBody, sessionID)
	}

	sanitized, words := s.moderator.Censor(content)
	if len(words) > 0 {
		s.log.Info("Message censored", "session_id", sessionID, "words", len(words))
	}
	message := domain.ChatMessage{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		SenderID:   issuer.UserID,
		SenderKind: issuer.Kind.String(),
		SenderName: issuer.DisplayName(),
		Content:    sanitized,
		Lang:       detectLang(content),
		CreatedAt:  s.now(),
	}
	if err := s.repository.StoreMessage(message); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("store message: %w", err)
	}

	s.publisher.Publish(event.New(event.NewChatMessage{ChatMessage: message}, room))
	return message, nil
}

// MarkRead is allowed to the session customer and to staff. A guest
// session has no customer, so its members may acknowledge messages.
func (s *ChatService) MarkRead(_ context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID string, messageIDs []string) ([]string, error) {
	room := domain.ChatRoom(sessionID)
	session, err := s.repository.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	allowed := issuer.IsStaff() ||
		issuer.Owns(session.CustomerID) ||
		(session.CustomerID == "" && s.members.IsMember(connID, room))
	if !allowed {
		return nil, fmt.Errorf("%w: %s belongs to another customer", errors.ErrForbidden, room)
	}

	at := s.now()
	marked, err := s.repository.MarkRead(sessionID, messageIDs, issuer.UserID, at)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	if len(marked) == 0 {
		return marked, nil
	}
	s.publisher.Publish(event.New(event.MessagesRead{
		SessionID:  sessionID,
		MessageIDs: marked,
		Reader:     event.ReaderOf(issuer),
		ReadAt:     at,
	}, room))
	return marked, nil
}

// Typing indicators are relayed, never stored.
func (s *ChatService) Typing(_ context.Context, issuer domain.Identity, connID domain.ConnectionID, sessionID string, started bool) error {
	room := domain.ChatRoom(sessionID)
	if !s.members.IsMember(connID, room) {
		return fmt.Errorf("%w: join %s first", errors.ErrForbidden, room)
	}
	var payload event.Payload = event.TypingStopped{SessionID: sessionID, Who: event.ReaderOf(issuer)}
	if started {
		payload = event.TypingStarted{SessionID: sessionID, Who: event.ReaderOf(issuer)}
	}
	s.publisher.Publish(event.New(payload, room))
	return nil
}

// UpdateStatus is reserved to staff. The agent taking an active session
// is recorded when none was set yet.
func (s *ChatService) UpdateStatus(_ context.Context, issuer domain.Identity, sessionID string, status domain.ChatSessionStatus) (domain.ChatSession, error) {
	if !issuer.IsStaff() {
		return domain.ChatSession{}, fmt.Errorf("%w: only staff may change a chat session status", errors.ErrForbidden)
	}
	var previous domain.ChatSessionStatus
	session, err := s.repository.UpdateSession(sessionID, func(session *domain.ChatSession) error {
		previous = session.Status
		session.Status = status
		if status == domain.ChatActive && session.AgentID == "" {
			session.AgentID = issuer.UserID
		}
		session.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.ChatSession{}, err
	}

	s.publisher.Publish(event.New(event.ChatSessionStatus{
		SessionID: sessionID,
		Status:    status,
		Previous:  previous,
		AgentID:   session.AgentID,
		ChangedBy: event.ReaderOf(issuer),
	}, domain.ChatRoom(sessionID), domain.StaffRoom()))
	return session, nil
}

// History pages through stored messages with the same policy as joining
// the chat room.
func (s *ChatService) History(_ context.Context, viewer domain.Identity, sessionID string, cursor *string) ([]domain.ChatMessage, *string, error) {
	session, err := s.repository.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !canView(viewer, session.CustomerID) {
		return nil, nil, fmt.Errorf("%w: chat session %s belongs to another customer", errors.ErrForbidden, sessionID)
	}
	return s.repository.GetMessages(sessionID, cursor)
}

// canView mirrors the join policy of entity rooms.
func canView(viewer domain.Identity, owner string) bool {
	return viewer.IsStaff() || owner == "" || viewer.Owns(owner)
}

// detectLang tags the message with an ISO 639-1 code when the guess is reliable.
func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
