//go:generate go run go.uber.org/mock/mockgen -source=order.go -destination=../mocks/mock_order_repository.go -package=mocks
package repositories

import (
	"restaurant-hub/domain"

	"github.com/dgraph-io/badger/v4"
)

type IOrderRepository interface {
	SaveOrder(order domain.Order) error
	GetOrder(id string) (domain.Order, error)
	UpdateOrder(id string, mutate func(*domain.Order) error) (domain.Order, error)
}

type OrderRepository struct {
	db *badger.DB
}

func NewOrderRepository(db *badger.DB) OrderRepository {
	return OrderRepository{db: db}
}

func orderKey(id string) string { return "order:" + id }

func (o OrderRepository) SaveOrder(order domain.Order) error {
	return o.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, orderKey(order.ID), order)
	})
}

func (o OrderRepository) GetOrder(id string) (domain.Order, error) {
	var order domain.Order
	err := o.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, orderKey(id), &order)
	})
	return order, err
}

// UpdateOrder applies mutate atomically. Nothing is written when mutate fails.
func (o OrderRepository) UpdateOrder(id string, mutate func(*domain.Order) error) (domain.Order, error) {
	return updateJSON(o.db, orderKey(id), mutate)
}
