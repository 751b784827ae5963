package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/errors"
	"restaurant-hub/metrics"

	"github.com/goccy/go-json"
)

// Reply answers the issuing connection only. It is never broadcast.
type Reply struct {
	Verb   domain.Verb `json:"verb"`
	Ref    string      `json:"ref,omitempty"`
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

type ReplyError struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
}

type roomRouter interface {
	membership
	Join(ctx context.Context, id domain.ConnectionID, room domain.RoomID, identity domain.Identity) error
	Leave(id domain.ConnectionID, room domain.RoomID)
}

type sessionToucher interface {
	Touch(id domain.ConnectionID)
}

// Legacy colon names sent by clients that predate the verb catalog.
var verbAliases = map[string]domain.Verb{
	"join":                       domain.VerbJoinRoom,
	"leave":                      domain.VerbLeaveRoom,
	"chat:join_session":          domain.VerbJoinRoom,
	"chat:leave_session":         domain.VerbLeaveRoom,
	"order:join":                 domain.VerbJoinRoom,
	"order:leave":                domain.VerbLeaveRoom,
	"reservation:join":           domain.VerbJoinRoom,
	"reservation:leave":          domain.VerbLeaveRoom,
	"table:join":                 domain.VerbJoinRoom,
	"table:leave":                domain.VerbLeaveRoom,
	"joinOrder":                  domain.VerbJoinRoom,
	"leaveOrder":                 domain.VerbLeaveRoom,
	"joinReservation":            domain.VerbJoinRoom,
	"leaveReservation":           domain.VerbLeaveRoom,
	"joinTable":                  domain.VerbJoinRoom,
	"leaveTable":                 domain.VerbLeaveRoom,
	"join_table":                 domain.VerbJoinRoom,
	"leave_table":                domain.VerbLeaveRoom,
	"order:join_table":           domain.VerbJoinRoom,
	"order:leave_table":          domain.VerbLeaveRoom,
	"joinSession":                domain.VerbJoinRoom,
	"join_session":               domain.VerbJoinRoom,
	"leave_session":              domain.VerbLeaveRoom,
	"join_kitchen":               domain.VerbJoinRoom,
	"leave_kitchen":              domain.VerbLeaveRoom,
	"joinStaffRoom":              domain.VerbJoinRoom,
	"chat:send_message":          domain.VerbSendChatMessage,
	"chat:mark_read":             domain.VerbMarkMessagesRead,
	"chat:typing_start":          domain.VerbTypingStart,
	"chat:typing_end":            domain.VerbTypingEnd,
	"chat:update_session_status": domain.VerbUpdateChatSession,
	"order:update_status":        domain.VerbUpdateOrderStatus,
	"order:update_item_status":   domain.VerbUpdateOrderItemStatus,
	"order:add_note":             domain.VerbAddOrderNote,
	"order:request_support":      domain.VerbRequestSupport,
	"reservation:update_status":  domain.VerbUpdateReservation,
	"reservation:assign_table":   domain.VerbAssignTable,
	"reservation:add_note":       domain.VerbAddReservationNote,
	"notification:mark_read":     domain.VerbMarkNotificationsRead,
	"notification:broadcast":     domain.VerbBroadcastNotification,
}

// Legacy join names that always meant one fixed room.
var aliasRooms = map[string]domain.RoomID{
	"join_kitchen":  domain.StaffRoom(),
	"leave_kitchen": domain.StaffRoom(),
	"joinStaffRoom": domain.StaffRoom(),
}

var knownVerbs = map[domain.Verb]struct{}{
	domain.VerbJoinRoom:              {},
	domain.VerbLeaveRoom:             {},
	domain.VerbPing:                  {},
	domain.VerbSendChatMessage:       {},
	domain.VerbMarkMessagesRead:      {},
	domain.VerbTypingStart:           {},
	domain.VerbTypingEnd:             {},
	domain.VerbUpdateChatSession:     {},
	domain.VerbUpdateOrderStatus:     {},
	domain.VerbUpdateOrderItemStatus: {},
	domain.VerbAddOrderNote:          {},
	domain.VerbRequestSupport:        {},
	domain.VerbUpdateReservation:     {},
	domain.VerbAssignTable:           {},
	domain.VerbAddReservationNote:    {},
	domain.VerbMarkNotificationsRead: {},
	domain.VerbBroadcastNotification: {},
}

type envelope struct {
	Verb string `json:"verb"`
	Ref  string `json:"ref,omitempty"`
}

// ParseCommand reads the verb and ref of a frame. The whole frame is kept
// as the body, verb specific fields sit next to the verb. The returned
// command carries the verb and ref even when parsing fails, so the reply
// can echo them.
func ParseCommand(frame []byte, connID domain.ConnectionID, issuer domain.Identity, at time.Time) (domain.Command, error) {
	cmd := domain.Command{ConnectionID: connID, Issuer: issuer, Body: frame, ReceivedAt: at}
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return cmd, fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	cmd.Ref = env.Ref
	verb := strings.TrimSpace(env.Verb)
	cmd.Verb = domain.Verb(verb)
	if alias, ok := verbAliases[verb]; ok {
		cmd.Verb = alias
		cmd.Alias = verb
	}
	if _, ok := knownVerbs[cmd.Verb]; !ok {
		return cmd, fmt.Errorf("%w: %q", errors.ErrUnknownVerb, verb)
	}
	return cmd, nil
}

// CommandHandler validates inbound commands against the issuer identity
// and runs them. Each verb is judged on its own.
type CommandHandler struct {
	log           *slog.Logger
	router        roomRouter
	sessions      sessionToucher
	limiter       *CommandLimiter
	chat          IChatService
	orders        IOrderService
	reservations  IReservationService
	notifications INotificationService
	now           func() time.Time
}

func NewCommandHandler(log *slog.Logger,
	router roomRouter,
	sessions sessionToucher,
	limiter *CommandLimiter,
	chat IChatService,
	orders IOrderService,
	reservations IReservationService,
	notifications INotificationService) *CommandHandler {
	return &CommandHandler{
		log:           log,
		router:        router,
		sessions:      sessions,
		limiter:       limiter,
		chat:          chat,
		orders:        orders,
		reservations:  reservations,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// HandleFrame parses and runs one inbound frame of a connection.
func (h *CommandHandler) HandleFrame(ctx context.Context, connID domain.ConnectionID, issuer domain.Identity, frame []byte) Reply {
	h.sessions.Touch(connID)
	cmd, err := ParseCommand(frame, connID, issuer, h.now())
	if err != nil {
		return h.reply(cmd, nil, err)
	}
	return h.Handle(ctx, cmd)
}

func (h *CommandHandler) Handle(ctx context.Context, cmd domain.Command) Reply {
	if cmd.Verb != domain.VerbPing && !h.limiter.Allow(cmd.ConnectionID) {
		return h.reply(cmd, nil, fmt.Errorf("%w: slow down", errors.ErrRateLimited))
	}
	result, err := h.execute(ctx, cmd)
	return h.reply(cmd, result, err)
}

// Forget releases what the handler keeps for a closed connection.
func (h *CommandHandler) Forget(connID domain.ConnectionID) {
	h.limiter.Forget(connID)
}

func (h *CommandHandler) reply(cmd domain.Command, result any, err error) Reply {
	verbLabel := string(cmd.Verb)
	if _, ok := knownVerbs[cmd.Verb]; !ok {
		verbLabel = "unknown"
	}
	if err == nil {
		metrics.CommandsTotal.WithLabelValues(verbLabel, "ok").Inc()
		return Reply{Verb: cmd.Verb, Ref: cmd.Ref, OK: true, Result: result}
	}

	kind := errors.KindOf(err)
	metrics.CommandsTotal.WithLabelValues(verbLabel, string(kind)).Inc()
	if kind == errors.KindInternal {
		h.log.Error("Command failed", "connection_id", cmd.ConnectionID, "verb", cmd.Verb, "error", err)
	} else {
		h.log.Debug("Command rejected", "connection_id", cmd.ConnectionID, "verb", cmd.Verb, "kind", kind, "error", err)
	}
	return Reply{
		Verb:  cmd.Verb,
		Ref:   cmd.Ref,
		Error: &ReplyError{Kind: kind, Message: errors.PublicMessage(err)},
	}
}

func (h *CommandHandler) execute(ctx context.Context, cmd domain.Command) (any, error) {
	issuer := cmd.Issuer
	switch cmd.Verb {
	case domain.VerbPing:
		return map[string]any{"pong": h.now()}, nil

	case domain.VerbJoinRoom:
		room, err := roomOf(cmd)
		if err != nil {
			return nil, err
		}
		if err := h.router.Join(ctx, cmd.ConnectionID, room, issuer); err != nil {
			return nil, err
		}
		return map[string]string{"room": room.String()}, nil

	case domain.VerbLeaveRoom:
		room, err := roomOf(cmd)
		if err != nil {
			return nil, err
		}
		h.router.Leave(cmd.ConnectionID, room)
		return map[string]string{"room": room.String()}, nil

	case domain.VerbSendChatMessage:
		body, err := decodeBody[sendMessageBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.chat.SendMessage(ctx, issuer, cmd.ConnectionID, body.SessionID, body.Message)

	case domain.VerbMarkMessagesRead:
		body, err := decodeBody[markReadBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		marked, err := h.chat.MarkRead(ctx, issuer, cmd.ConnectionID, body.SessionID, body.MessageIDs)
		if err != nil {
			return nil, err
		}
		return map[string][]string{"messageIds": marked}, nil

	case domain.VerbTypingStart, domain.VerbTypingEnd:
		body, err := decodeBody[sessionBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return nil, h.chat.Typing(ctx, issuer, cmd.ConnectionID, body.SessionID, cmd.Verb == domain.VerbTypingStart)

	case domain.VerbUpdateChatSession:
		body, err := decodeBody[chatStatusBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.chat.UpdateStatus(ctx, issuer, body.SessionID, body.Status)

	case domain.VerbUpdateOrderStatus:
		// Role first, so a customer learns nothing about the order
		if !issuer.IsStaff() {
			return nil, fmt.Errorf("%w: only staff may change an order status", errors.ErrForbidden)
		}
		body, err := decodeBody[orderStatusBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.orders.UpdateStatus(ctx, issuer, body.OrderID, body.Status, body.Note)

	case domain.VerbUpdateOrderItemStatus:
		body, err := decodeBody[itemStatusBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.orders.UpdateItemStatus(ctx, issuer, body.OrderID, body.ItemID, body.Status)

	case domain.VerbAddOrderNote:
		body, err := decodeBody[orderNoteBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.orders.AddNote(ctx, issuer, body.OrderID, body.Note, body.Type == "internal")

	case domain.VerbRequestSupport:
		body, err := decodeBody[supportBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return nil, h.orders.RequestSupport(ctx, issuer, body.OrderID, body.Message)

	case domain.VerbUpdateReservation:
		body, err := decodeBody[reservationStatusBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.reservations.UpdateStatus(ctx, issuer, body.ReservationID, body.Status)

	case domain.VerbAssignTable:
		body, err := decodeBody[assignTableBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.reservations.AssignTable(ctx, issuer, body.ReservationID, body.TableID)

	case domain.VerbAddReservationNote:
		body, err := decodeBody[reservationNoteBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		return h.reservations.AddNote(ctx, issuer, body.ReservationID, body.Note, body.Type == "internal")

	case domain.VerbMarkNotificationsRead:
		body, err := decodeBody[notificationsReadBody](cmd.Body)
		if err != nil {
			return nil, err
		}
		marked, err := h.notifications.MarkRead(ctx, issuer, body.NotificationIDs)
		if err != nil {
			return nil, err
		}
		return map[string][]string{"notificationIds": marked}, nil

	case domain.VerbBroadcastNotification:
		body, err := decodeBody[Broadcast](cmd.Body)
		if err != nil {
			return nil, err
		}
		sent, err := h.notifications.Broadcast(ctx, issuer, body)
		if err != nil {
			return nil, err
		}
		return map[string]int{"sent": len(sent)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownVerb, cmd.Verb)
	}
}
