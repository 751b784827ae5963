package repositories

import (
	"restaurant-hub/domain"

	"github.com/dgraph-io/badger/v4"
)

type IReservationRepository interface {
	SaveReservation(reservation domain.Reservation) error
	GetReservation(id string) (domain.Reservation, error)
	UpdateReservation(id string, mutate func(*domain.Reservation) error) (domain.Reservation, error)
}

type ReservationRepository struct {
	db *badger.DB
}

func NewReservationRepository(db *badger.DB) ReservationRepository {
	return ReservationRepository{db: db}
}

func reservationKey(id string) string { return "reservation:" + id }

func (r ReservationRepository) SaveReservation(reservation domain.Reservation) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, reservationKey(reservation.ID), reservation)
	})
}

func (r ReservationRepository) GetReservation(id string) (domain.Reservation, error) {
	var reservation domain.Reservation
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, reservationKey(id), &reservation)
	})
	return reservation, err
}

func (r ReservationRepository) UpdateReservation(id string, mutate func(*domain.Reservation) error) (domain.Reservation, error) {
	return updateJSON(r.db, reservationKey(id), mutate)
}
