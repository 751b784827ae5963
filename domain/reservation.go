package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCheckedIn ReservationStatus = "checked_in"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationNoShow    ReservationStatus = "no_show"
)

type Reservation struct {
	ID          string            `json:"reservationId" validate:"required"`
	CustomerID  string            `json:"customerId,omitempty"`
	TableID     string            `json:"tableId,omitempty"`
	Status      ReservationStatus `json:"status" validate:"omitempty,oneof=pending confirmed checked_in completed cancelled no_show"`
	PartySize   int               `json:"partySize" validate:"gte=0"`
	ReservedFor time.Time         `json:"reservedFor"`
	Notes       []OrderNote       `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PublicNotes filters out staff-only notes.
func (r Reservation) PublicNotes() []OrderNote {
	notes := make([]OrderNote, 0, len(r.Notes))
	for _, n := range r.Notes {
		if !n.Internal {
			notes = append(notes, n)
		}
	}
	return notes
}
