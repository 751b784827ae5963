package event

// Legacy event names still listened to by clients that predate the
// canonical catalog. Delete an entry once no client subscribes to it.
var aliases = map[Type][]string{
	ChatNewMessage:           {"chat:new_message", "messageReceived"},
	ChatSessionNew:           {"chat:session_new"},
	ChatSessionStatusChanged: {"chat:session_status_changed"},
	ChatMessagesRead:         {"chat:messages_read"},
	ChatTyping:               {"chat:typing"},
	ChatTypingStopped:        {"chat:typing_ended"},
	OrderCreated:             {"order:created", "orderCreated"},
	OrderUpdated:             {"order:updated", "orderUpdated"},
	OrderStatusChanged:       {"order:status_changed", "orderStatusChanged"},
	OrderPaymentCompleted:    {"order:payment_completed", "paymentCompleted"},
	OrderItemStatusChanged:   {"order:item_status_changed"},
	OrderNoteAdded:           {"order:note_added"},
	OrderSupportRequested:    {"order:support_requested"},
	ReservationCreated:       {"reservation:created", "reservationCreated"},
	ReservationStatusChanged: {"reservation:status_changed", "reservationStatusChanged"},
	ReservationTableAssigned: {"reservation:table_assigned"},
	ReservationNoteAdded:     {"reservation:note_added"},
	NotificationNew:          {"notification:new", "newNotification"},
	NotificationRead:         {"notification:marked_read"},
	TableStatusChanged:       {"table:status_changed"},
}

// AliasesOf returns a copy so callers cannot edit the table.
func AliasesOf(t Type) []string {
	names := aliases[t]
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}
