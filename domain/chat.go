package domain

import "time"

type ChatSessionStatus string

const (
	ChatActive  ChatSessionStatus = "active"
	ChatWaiting ChatSessionStatus = "waiting"
	ChatClosed  ChatSessionStatus = "closed"
)

// ChatSession is a support conversation between one customer (or guest)
// and the staff. A guest session has no CustomerID.
type ChatSession struct {
	ID         string            `json:"sessionId" validate:"required"`
	CustomerID string            `json:"customerId,omitempty"`
	GuestName  string            `json:"guestName,omitempty"`
	AgentID    string            `json:"agentId,omitempty"`
	Status     ChatSessionStatus `json:"status" validate:"omitempty,oneof=active waiting closed"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type ChatMessage struct {
	ID         string     `json:"messageId"`
	SessionID  string     `json:"sessionId"`
	SenderID   string     `json:"senderId,omitempty"`
	SenderKind string     `json:"senderKind"`
	SenderName string     `json:"senderName"`
	Content    string     `json:"content"`
	Lang       string     `json:"lang,omitempty"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
