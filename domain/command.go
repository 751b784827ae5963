package domain

import (
	"time"
)

type Verb string

const (
	VerbJoinRoom              Verb = "join_room"
	VerbLeaveRoom             Verb = "leave_room"
	VerbPing                  Verb = "ping"
	VerbSendChatMessage       Verb = "send_chat_message"
	VerbMarkMessagesRead      Verb = "mark_messages_read"
	VerbTypingStart           Verb = "typing_start"
	VerbTypingEnd             Verb = "typing_end"
	VerbUpdateChatSession     Verb = "update_chat_session_status"
	VerbUpdateOrderStatus     Verb = "update_order_status"
	VerbUpdateOrderItemStatus Verb = "update_order_item_status"
	VerbAddOrderNote          Verb = "add_order_note"
	VerbRequestSupport        Verb = "request_support"
	VerbUpdateReservation     Verb = "update_reservation_status"
	VerbAssignTable           Verb = "assign_table"
	VerbAddReservationNote    Verb = "add_reservation_note"
	VerbMarkNotificationsRead Verb = "mark_notifications_read"
	VerbBroadcastNotification Verb = "broadcast_notification"
)

// Command is an inbound client request. Issuer is captured when the
// frame is read, so a command is always judged with the identity the
// connection had at receipt time.
type Command struct {
	Verb         Verb
	Ref          string
	ConnectionID ConnectionID
	Issuer       Identity
	Body         []byte
	ReceivedAt   time.Time
	// Alias is the legacy name the client sent, empty for canonical verbs.
	Alias string
}
