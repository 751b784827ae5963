package domain

import "time"

type Notification struct {
	ID          string    `json:"notificationId"`
	RecipientID string    `json:"recipientId" validate:"required"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}
