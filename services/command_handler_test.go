package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/errors"

	"github.com/stretchr/testify/require"
)

func TestCommandHandler_Chat_Scenario(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice", Status: domain.ChatActive}))
	aliceTransport, aliceID := f.connect(alice)
	samTransport, samID := f.connect(sam)

	// Given the customer and a staff member in the chat room, the staff through a legacy verb
	reply := f.send(aliceID, alice, `{"verb":"join_room","ref":"1","room":"chat:S1"}`)
	req.True(reply.OK)
	req.Equal("1", reply.Ref)
	reply = f.send(samID, sam, `{"verb":"chat:join_session","sessionId":"S1"}`)
	req.True(reply.OK)
	req.Equal(domain.VerbJoinRoom, reply.Verb)

	// When the customer writes
	reply = f.send(aliceID, alice, `{"verb":"send_chat_message","ref":"2","sessionId":"S1","message":"hello"}`)
	req.True(reply.OK)

	// Then both ends receive the message once, the sender included
	for _, transport := range []*recorder{aliceTransport, samTransport} {
		frames := transport.received("chat.new_message")
		req.Len(frames, 1)
		payload := payloadOf(t, frames[0])
		req.Equal("hello", payload["content"])
		req.Equal("alice", payload["senderId"])
		req.Len(transport.received("chat:new_message"), 1)
		req.Len(transport.received("messageReceived"), 1)
	}

	// And the message is stored
	messages, _, err := f.chats.GetMessages("S1", nil)
	req.NoError(err)
	req.Len(messages, 1)
}

func TestCommandHandler_Chat_Message_Is_Moderated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", GuestName: "walk-in"}))
	transport, id := f.connect(guest)
	req.True(f.send(id, guest, `{"verb":"join_room","room":"chat:S1"}`).OK)

	reply := f.send(id, guest, `{"verb":"send_chat_message","sessionId":"S1","message":"a badger here"}`)

	req.True(reply.OK)
	frames := transport.received("chat.new_message")
	req.Len(frames, 1)
	req.Equal("a ****** here", payloadOf(t, frames[0])["content"])
	req.Equal("guest", payloadOf(t, frames[0])["senderName"])
}

func TestCommandHandler_Send_Without_Joining_Is_Forbidden(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice"}))
	_, aliceID := f.connect(alice)

	reply := f.send(aliceID, alice, `{"verb":"send_chat_message","sessionId":"S1","message":"hello"}`)

	requireKind(t, reply, errors.KindForbidden)
	messages, _, err := f.chats.GetMessages("S1", nil)
	req.NoError(err)
	req.Empty(messages)
}

func TestCommandHandler_Join_Another_Customers_Order_Is_Forbidden(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice"}))
	_, bobID := f.connect(bob)

	requireKind(t, f.send(bobID, bob, `{"verb":"order:join","orderId":"O1"}`), errors.KindForbidden)
	requireKind(t, f.send(bobID, bob, `{"verb":"join_room","room":"order:O404"}`), errors.KindNotFound)
	requireKind(t, f.send(bobID, bob, `{"verb":"join_room","room":"kitchen:1"}`), errors.KindInvalidBody)
	requireKind(t, f.send(bobID, bob, `{"verb":"join_room"}`), errors.KindInvalidBody)
	req.False(f.router.IsMember(bobID, domain.OrderRoom("O1")))

	// Leaving a room never joined is fine
	req.True(f.send(bobID, bob, `{"verb":"leave_room","room":"order:O1"}`).OK)
}

func TestCommandHandler_Order_Status_Scenario(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice", Status: domain.OrderPreparing}))
	aliceTransport, aliceID := f.connect(alice)
	bobTransport, _ := f.connect(bob)
	samTransport, samID := f.connect(sam)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)

	// When staff marks the order ready
	reply := f.send(samID, sam, `{"verb":"order:update_status","orderId":"O1","status":"ready"}`)
	req.True(reply.OK)

	// Then the order room and the staff room hear about it once
	aliceFrames := aliceTransport.received("order.status_changed")
	req.Len(aliceFrames, 1)
	req.Equal("ready", payloadOf(t, aliceFrames[0])["status"])
	req.Equal("preparing", payloadOf(t, aliceFrames[0])["previousStatus"])
	req.Len(samTransport.received("order.status_changed"), 1)
	req.Len(aliceTransport.received("orderStatusChanged"), 1)

	// And a customer with no join receives nothing
	req.Zero(bobTransport.count())

	order, err := f.orders.GetOrder("O1")
	req.NoError(err)
	req.Equal(domain.OrderReady, order.Status)
}

func TestCommandHandler_Customer_Cannot_Update_Order_Status(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice", Status: domain.OrderPreparing}))
	aliceTransport, aliceID := f.connect(alice)
	samTransport, _ := f.connect(sam)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)

	reply := f.send(aliceID, alice, `{"verb":"update_order_status","orderId":"O1","status":"ready"}`)

	requireKind(t, reply, errors.KindForbidden)
	req.Empty(aliceTransport.received("order.status_changed"))
	req.Empty(samTransport.received("order.status_changed"))
	order, err := f.orders.GetOrder("O1")
	req.NoError(err)
	req.Equal(domain.OrderPreparing, order.Status)
}

func TestCommandHandler_Order_Status_Rejections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice", Status: domain.OrderReady}))
	samTransport, samID := f.connect(sam)

	requireKind(t, f.send(samID, sam, `{"verb":"update_order_status","orderId":"O1","status":"preparing"}`), errors.KindInvalidBody)
	requireKind(t, f.send(samID, sam, `{"verb":"update_order_status","orderId":"O1","status":"eaten"}`), errors.KindInvalidBody)
	requireKind(t, f.send(samID, sam, `{"verb":"update_order_status","orderId":"O404","status":"paid"}`), errors.KindNotFound)
	req.Empty(samTransport.received("order.status_changed"))
}

func TestCommandHandler_Unknown_Verb_And_Malformed_Frames(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	_, id := f.connect(alice)

	reply := f.send(id, alice, `{"verb":"order:eat","ref":"x"}`)
	requireKind(t, reply, errors.KindInvalidBody)
	req.Equal(domain.Verb("order:eat"), reply.Verb)
	req.Equal("x", reply.Ref)

	requireKind(t, f.send(id, alice, `{not json`), errors.KindInvalidBody)
	requireKind(t, f.send(id, alice, `{"verb":"send_chat_message","sessionId":"S1"}`), errors.KindInvalidBody)
}

func TestCommandHandler_Ping(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	_, id := f.connect(guest)

	reply := f.send(id, guest, `{"verb":"ping","ref":"p"}`)

	req.True(reply.OK)
	req.Equal("p", reply.Ref)
}

func TestCommandHandler_Rate_Limited(t *testing.T) {
	req := require.New(t)
	limiter := NewCommandLimiter(0.001, 1)
	f := newFixture(t, limiter)
	_, id := f.connect(sam)

	req.True(f.send(id, sam, `{"verb":"join_room","room":"table:4"}`).OK)
	requireKind(t, f.send(id, sam, `{"verb":"join_room","room":"table:5"}`), errors.KindRateLimited)

	// Ping stays available to keep the connection alive
	req.True(f.send(id, sam, `{"verb":"ping"}`).OK)

	f.handler.Forget(id)
	req.Zero(limiter.Len())
}

func TestCommandHandler_Reconnect_Needs_Join(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice", Status: domain.OrderPending}))
	_, firstID := f.connect(alice)
	_, samID := f.connect(sam)
	req.True(f.send(firstID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)

	// Given the customer drops and comes back on a new connection
	f.registry.Deregister(firstID)
	second, secondID := f.connect(alice)

	// When the order changes before the rejoin
	req.True(f.send(samID, sam, `{"verb":"update_order_status","orderId":"O1","status":"preparing"}`).OK)

	// Then nothing reaches the new connection
	req.Empty(second.received("order.status_changed"))

	// Until it joins again
	req.True(f.send(secondID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)
	req.True(f.send(samID, sam, `{"verb":"update_order_status","orderId":"O1","status":"ready"}`).OK)
	req.Len(second.received("order.status_changed"), 1)
}

func TestCommandHandler_Mark_Messages_Read(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice"}))
	req.NoError(f.chats.StoreMessage(domain.ChatMessage{ID: "m1", SessionID: "S1", SenderID: "alice", CreatedAt: time.Now()}))
	aliceTransport, aliceID := f.connect(alice)
	_, samID := f.connect(sam)
	_, bobID := f.connect(bob)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"chat:S1"}`).OK)

	// Another customer cannot acknowledge the messages
	requireKind(t, f.send(bobID, bob, `{"verb":"chat:mark_read","sessionId":"S1","messageIds":["m1"]}`), errors.KindForbidden)

	// Staff can, and the customer sees the receipt
	reply := f.send(samID, sam, `{"verb":"mark_messages_read","sessionId":"S1","messageIds":["m1"]}`)
	req.True(reply.OK)
	frames := aliceTransport.received("chat.messages_read")
	req.Len(frames, 1)
	req.Equal([]any{"m1"}, payloadOf(t, frames[0])["messageIds"])
}

func TestCommandHandler_Typing_Is_Relayed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice"}))
	_, aliceID := f.connect(alice)
	samTransport, samID := f.connect(sam)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"chat:S1"}`).OK)
	req.True(f.send(samID, sam, `{"verb":"join_room","room":"chat:S1"}`).OK)

	req.True(f.send(aliceID, alice, `{"verb":"chat:typing_start","sessionId":"S1"}`).OK)
	req.True(f.send(aliceID, alice, `{"verb":"typing_end","sessionId":"S1"}`).OK)

	req.Len(samTransport.received("chat.typing"), 1)
	req.Len(samTransport.received("chat.typing_stopped"), 1)
}

func TestCommandHandler_Chat_Session_Status(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.chats.SaveSession(domain.ChatSession{ID: "S1", CustomerID: "alice", Status: domain.ChatWaiting}))
	_, aliceID := f.connect(alice)
	samTransport, samID := f.connect(sam)

	requireKind(t, f.send(aliceID, alice, `{"verb":"update_chat_session_status","sessionId":"S1","status":"closed"}`), errors.KindForbidden)
	req.True(f.send(samID, sam, `{"verb":"chat:update_session_status","sessionId":"S1","status":"active"}`).OK)

	req.Len(samTransport.received("chat.session_status_changed"), 1)
	session, err := f.chats.GetSession("S1")
	req.NoError(err)
	req.Equal(domain.ChatActive, session.Status)
	req.Equal("sam", session.AgentID)

	// A closed session takes no more messages
	req.True(f.send(samID, sam, `{"verb":"update_chat_session_status","sessionId":"S1","status":"closed"}`).OK)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"chat:S1"}`).OK)
	requireKind(t, f.send(aliceID, alice, `{"verb":"send_chat_message","sessionId":"S1","message":"still there?"}`), errors.KindInvalidBody)
}

func TestCommandHandler_Order_Notes_And_Items(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{
		ID: "O1", CustomerID: "alice", Status: domain.OrderPreparing,
		Items: []domain.OrderItem{{ID: "i1", Name: "Pho", Quantity: 1, Status: domain.ItemPending}},
	}))
	aliceTransport, aliceID := f.connect(alice)
	samTransport, samID := f.connect(sam)
	req.True(f.send(aliceID, alice, `{"verb":"join_room","room":"order:O1"}`).OK)

	// Customers cannot write internal notes
	requireKind(t, f.send(aliceID, alice, `{"verb":"order:add_note","orderId":"O1","note":"x","type":"internal"}`), errors.KindForbidden)

	// A staff internal note stays in the staff room
	req.True(f.send(samID, sam, `{"verb":"add_order_note","orderId":"O1","note":"VIP","type":"internal"}`).OK)
	req.Empty(aliceTransport.received("order.note_added"))
	req.Len(samTransport.received("order.note_added"), 1)

	// A public note reaches the order room
	req.True(f.send(aliceID, alice, `{"verb":"add_order_note","orderId":"O1","note":"no onions"}`).OK)
	req.Len(aliceTransport.received("order.note_added"), 1)

	// Item status is staff only
	requireKind(t, f.send(aliceID, alice, `{"verb":"update_order_item_status","orderId":"O1","itemId":"i1","status":"ready"}`), errors.KindForbidden)
	req.True(f.send(samID, sam, `{"verb":"order:update_item_status","orderId":"O1","itemId":"i1","status":"ready"}`).OK)
	requireKind(t, f.send(samID, sam, `{"verb":"order:update_item_status","orderId":"O1","itemId":"i9","status":"ready"}`), errors.KindNotFound)
	req.Len(aliceTransport.received("order.item_status_changed"), 1)

	// Support requests reach the staff
	req.True(f.send(aliceID, alice, `{"verb":"order:request_support","orderId":"O1","message":"help"}`).OK)
	req.Len(samTransport.received("order.support_requested"), 1)

	order, err := f.orders.GetOrder("O1")
	req.NoError(err)
	req.Len(order.Notes, 2)
	req.Equal(domain.ItemReady, order.Items[0].Status)
}

func TestCommandHandler_Reservations(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.reservations.SaveReservation(domain.Reservation{ID: "R1", CustomerID: "alice", Status: domain.ReservationPending}))
	aliceTransport, aliceID := f.connect(alice)
	floorTransport, floorID := f.connect(guest)
	_, samID := f.connect(sam)
	req.True(f.send(aliceID, alice, `{"verb":"reservation:join","reservationId":"R1"}`).OK)
	req.True(f.send(floorID, guest, `{"verb":"table:join","tableId":"12"}`).OK)

	requireKind(t, f.send(aliceID, alice, `{"verb":"reservation:update_status","reservationId":"R1","status":"confirmed"}`), errors.KindForbidden)
	req.True(f.send(samID, sam, `{"verb":"update_reservation_status","reservationId":"R1","status":"confirmed"}`).OK)
	req.True(f.send(samID, sam, `{"verb":"reservation:assign_table","reservationId":"R1","tableId":"12"}`).OK)

	req.Len(aliceTransport.received("reservation.status_changed"), 1)
	req.Len(aliceTransport.received("reservation.table_assigned"), 1)
	req.Len(floorTransport.received("reservation.table_assigned"), 1)
	req.Empty(floorTransport.received("reservation.status_changed"))
}

func TestCommandHandler_Notifications(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	aliceTransport, aliceID := f.connect(alice)
	bobTransport, bobID := f.connect(bob)
	samTransport, samID := f.connect(sam)

	// Customers cannot broadcast
	requireKind(t, f.send(aliceID, alice, `{"verb":"notification:broadcast","title":"hi"}`), errors.KindForbidden)

	// Staff broadcasts to alice only
	reply := f.send(samID, sam, `{"verb":"broadcast_notification","title":"Table ready","targetUserIds":["alice","alice"]}`)
	req.True(reply.OK)
	req.Equal(map[string]int{"sent": 1}, reply.Result)
	req.Len(aliceTransport.received("notification.new"), 1)
	req.Len(aliceTransport.received("newNotification"), 1)
	req.Empty(bobTransport.received("notification.new"))

	// Without targets only the staff hears it
	req.True(f.send(samID, sam, `{"verb":"broadcast_notification","title":"Shift change"}`).OK)
	req.Len(samTransport.received("notification.new"), 1)

	// Bob has nothing to mark
	reply = f.send(bobID, bob, `{"verb":"notification:mark_read"}`)
	req.True(reply.OK)
	req.Empty(bobTransport.received("notification.read"))

	// Alice marks everything read
	reply = f.send(aliceID, alice, `{"verb":"mark_notifications_read"}`)
	req.True(reply.OK)
	req.Len(aliceTransport.received("notification.read"), 1)

	// Anonymous connections have no notifications
	_, guestID := f.connect(guest)
	requireKind(t, f.send(guestID, guest, `{"verb":"mark_notifications_read"}`), errors.KindForbidden)
}

func TestParseCommand_Keeps_Issuer(t *testing.T) {
	req := require.New(t)
	at := time.Now()

	cmd, err := ParseCommand([]byte(`{"verb":" order:update_status ","ref":"7"}`), "c1", sam, at)

	req.NoError(err)
	req.Equal(domain.VerbUpdateOrderStatus, cmd.Verb)
	req.Equal("7", cmd.Ref)
	req.Equal(sam, cmd.Issuer)
	req.Equal(domain.ConnectionID("c1"), cmd.ConnectionID)
	req.Equal(at, cmd.ReceivedAt)
}

func TestCommandHandler_Handle_Direct(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	_, id := f.connect(sam)

	reply := f.handler.Handle(context.Background(), domain.Command{
		Verb:         domain.VerbJoinRoom,
		ConnectionID: id,
		Issuer:       sam,
		Body:         []byte(`{"room":"staff"}`),
	})

	req.True(reply.OK)
	req.True(f.router.IsMember(id, domain.StaffRoom()))
}

func TestCommandHandler_Reservation_Notes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.reservations.SaveReservation(domain.Reservation{ID: "R1", CustomerID: "alice", Status: domain.ReservationConfirmed}))
	aliceTransport, aliceID := f.connect(alice)
	samTransport, samID := f.connect(sam)
	_, bobID := f.connect(bob)
	req.True(f.send(aliceID, alice, `{"verb":"joinReservation","reservationId":"R1"}`).OK)

	// Internal notes are staff only, other customers cannot annotate
	requireKind(t, f.send(aliceID, alice, `{"verb":"reservation:add_note","reservationId":"R1","note":"allergy","type":"internal"}`), errors.KindForbidden)
	requireKind(t, f.send(bobID, bob, `{"verb":"add_reservation_note","reservationId":"R1","note":"mine?"}`), errors.KindForbidden)
	requireKind(t, f.send(samID, sam, `{"verb":"reservation:add_note","reservationId":"R404","note":"lost"}`), errors.KindNotFound)
	requireKind(t, f.send(samID, sam, `{"verb":"reservation:add_note","reservationId":"R1","note":"x","type":"secret"}`), errors.KindInvalidBody)

	// When staff writes an internal note and alice a public one
	req.True(f.send(samID, sam, `{"verb":"reservation:add_note","reservationId":"R1","note":"VIP, offer dessert","type":"internal"}`).OK)
	req.True(f.send(aliceID, alice, `{"verb":"reservation:add_note","reservationId":"R1","note":"window seat","type":"public"}`).OK)

	// Then the internal note stays in the staff room
	req.Len(samTransport.received("reservation.note_added"), 2)
	req.Len(samTransport.received("reservation:note_added"), 2)
	aliceFrames := aliceTransport.received("reservation.note_added")
	req.Len(aliceFrames, 1)
	req.Equal("window seat", payloadOf(t, aliceFrames[0])["note"].(map[string]any)["content"])

	// And the read model hides it from the customer
	service := NewReservationService(slog.Default(), f.reservations, f.dispatcher)
	forAlice, err := service.Get(context.Background(), alice, "R1")
	req.NoError(err)
	req.Len(forAlice.Notes, 1)
	forSam, err := service.Get(context.Background(), sam, "R1")
	req.NoError(err)
	req.Len(forSam.Notes, 2)
}

func TestCommandHandler_Legacy_Join_Names(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	req.NoError(f.orders.SaveOrder(domain.Order{ID: "O1", CustomerID: "alice"}))
	_, aliceID := f.connect(alice)
	_, samID := f.connect(sam)
	_, floorID := f.connect(guest)

	tests := []struct {
		name  string
		id    domain.ConnectionID
		who   domain.Identity
		frame string
		room  domain.RoomID
	}{
		{"joinOrder", aliceID, alice, `{"verb":"joinOrder","orderId":"O1"}`, domain.OrderRoom("O1")},
		{"joinTable", floorID, guest, `{"verb":"joinTable","tableId":"7"}`, domain.TableRoom("7")},
		{"join_table", floorID, guest, `{"verb":"join_table","tableId":"8"}`, domain.TableRoom("8")},
		{"order:join_table", floorID, guest, `{"verb":"order:join_table","tableId":"9"}`, domain.TableRoom("9")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			req.True(f.send(tt.id, tt.who, tt.frame).OK)
			req.True(f.router.IsMember(tt.id, tt.room))
		})
	}

	// leaveTable leaves what joinTable joined
	req.True(f.send(floorID, guest, `{"verb":"leaveTable","tableId":"7"}`).OK)
	req.False(f.router.IsMember(floorID, domain.TableRoom("7")))

	// The kitchen room is the staff room, no body needed
	req.True(f.send(samID, sam, `{"verb":"leave_kitchen"}`).OK)
	req.False(f.router.IsMember(samID, domain.StaffRoom()))
	req.True(f.send(samID, sam, `{"verb":"join_kitchen"}`).OK)
	req.True(f.router.IsMember(samID, domain.StaffRoom()))
	requireKind(t, f.send(aliceID, alice, `{"verb":"join_kitchen"}`), errors.KindForbidden)
	requireKind(t, f.send(aliceID, alice, `{"verb":"joinStaffRoom"}`), errors.KindForbidden)
}
