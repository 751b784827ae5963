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
	"restaurant-hub/repositories"

	"github.com/google/uuid"
)

type IReservationService interface {
	UpdateStatus(ctx context.Context, issuer domain.Identity, reservationID string, status domain.ReservationStatus) (domain.Reservation, error)
	AssignTable(ctx context.Context, issuer domain.Identity, reservationID, tableID string) (domain.Reservation, error)
	AddNote(ctx context.Context, issuer domain.Identity, reservationID, content string, internal bool) (domain.OrderNote, error)
	Get(ctx context.Context, viewer domain.Identity, reservationID string) (domain.Reservation, error)
}

type ReservationService struct {
	log        *slog.Logger
	repository repositories.IReservationRepository
	publisher  contract.Publisher
	now        func() time.Time
}

func NewReservationService(log *slog.Logger, repository repositories.IReservationRepository, publisher contract.Publisher) *ReservationService {
	return &ReservationService{
		log:        log,
		repository: repository,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReservationService) UpdateStatus(_ context.Context, issuer domain.Identity, reservationID string, status domain.ReservationStatus) (domain.Reservation, error) {
	if !issuer.IsStaff() {
		return domain.Reservation{}, fmt.Errorf("%w: only staff may change a reservation status", errors.ErrForbidden)
	}
	var previous domain.ReservationStatus
	reservation, err := s.repository.UpdateReservation(reservationID, func(r *domain.Reservation) error {
		previous = r.Status
		r.Status = status
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publisher.Publish(event.New(event.ReservationStatus{
		ReservationID: reservationID,
		Status:        status,
		Previous:      previous,
		ChangedBy:     event.ReaderOf(issuer),
	}, domain.ReservationRoom(reservationID), domain.StaffRoom()))
	return reservation, nil
}

// AssignTable also notifies the table room, where floor devices listen.
func (s *ReservationService) AssignTable(_ context.Context, issuer domain.Identity, reservationID, tableID string) (domain.Reservation, error) {
	if !issuer.IsStaff() {
		return domain.Reservation{}, fmt.Errorf("%w: only staff may assign tables", errors.ErrForbidden)
	}
	reservation, err := s.repository.UpdateReservation(reservationID, func(r *domain.Reservation) error {
		r.TableID = tableID
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publisher.Publish(event.New(event.TableAssigned{
		ReservationID: reservationID,
		TableID:       tableID,
		AssignedBy:    event.ReaderOf(issuer),
	}, domain.ReservationRoom(reservationID), domain.StaffRoom(), domain.TableRoom(tableID)))
	return reservation, nil
}

// AddNote lets the reservation owner and staff annotate a reservation.
// Internal notes are written by staff and only reach the staff room.
func (s *ReservationService) AddNote(_ context.Context, issuer domain.Identity, reservationID, content string, internal bool) (domain.OrderNote, error) {
	if internal && !issuer.IsStaff() {
		return domain.OrderNote{}, fmt.Errorf("%w: internal notes are reserved to staff", errors.ErrForbidden)
	}
	reservation, err := s.repository.GetReservation(reservationID)
	if err != nil {
		return domain.OrderNote{}, err
	}
	if !canView(issuer, reservation.CustomerID) {
		return domain.OrderNote{}, fmt.Errorf("%w: reservation %s belongs to another customer", errors.ErrForbidden, reservationID)
	}
	note := domain.OrderNote{
		ID:       uuid.NewString(),
		AuthorID: issuer.UserID,
		Author:   issuer.DisplayName(),
		Content:  content,
		Internal: internal,
		At:       s.now(),
	}
	if _, err := s.repository.UpdateReservation(reservationID, func(r *domain.Reservation) error {
		r.Notes = append(r.Notes, note)
		return nil
	}); err != nil {
		return domain.OrderNote{}, err
	}

	rooms := []domain.RoomID{domain.StaffRoom()}
	if !internal {
		rooms = append(rooms, domain.ReservationRoom(reservationID))
	}
	s.publisher.Publish(event.New(event.ReservationNote{ReservationID: reservationID, Note: note}, rooms...))
	return note, nil
}

// Get returns the reservation with the join policy of its room. Customers
// never see internal notes.
func (s *ReservationService) Get(_ context.Context, viewer domain.Identity, reservationID string) (domain.Reservation, error) {
	reservation, err := s.repository.GetReservation(reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !canView(viewer, reservation.CustomerID) {
		return domain.Reservation{}, fmt.Errorf("%w: reservation %s belongs to another customer", errors.ErrForbidden, reservationID)
	}
	if !viewer.IsStaff() {
		reservation.Notes = reservation.PublicNotes()
	}
	return reservation, nil
}
