package domain

import "time"

// ConnectionID is assigned by the transport when the socket is accepted.
type ConnectionID string

// Connection is a point-in-time copy of a registered connection.
type Connection struct {
	ID          ConnectionID `json:"connectionId"`
	Identity    Identity     `json:"identity"`
	Rooms       []RoomID     `json:"rooms"`
	ConnectedAt time.Time    `json:"connectedAt"`
	LastSeenAt  time.Time    `json:"lastSeenAt"`
}
