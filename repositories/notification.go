package repositories

import (
	"fmt"

	"restaurant-hub/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

type INotificationRepository interface {
	SaveNotification(notification domain.Notification) error
	ListNotifications(recipientID string, limit int) ([]domain.Notification, error)
	MarkRead(recipientID string, ids []string) ([]string, error)
}

type NotificationRepository struct {
	db *badger.DB
}

func NewNotificationRepository(db *badger.DB) NotificationRepository {
	return NotificationRepository{db: db}
}

func notificationPrefix(recipientID string) string { return "notif:" + recipientID + ":" }

func (n NotificationRepository) SaveNotification(notification domain.Notification) error {
	key := fmt.Sprintf("%s%019d:%s", notificationPrefix(notification.RecipientID), notification.CreatedAt.UnixNano(), notification.ID)
	return n.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, notification)
	})
}

// ListNotifications returns the newest notifications of a recipient first.
// A limit of zero or less means no limit.
func (n NotificationRepository) ListNotifications(recipientID string, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := n.db.View(func(txn *badger.Txn) error {
		prefix := []byte(notificationPrefix(recipientID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(notifications) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var notification domain.Notification
				if err := json.Unmarshal(val, &notification); err != nil {
					return err
				}
				notifications = append(notifications, notification)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return notifications, err
}

// MarkRead flags notifications of the recipient as read. With no ids,
// every unread notification is flagged. Notifications of other recipients
// cannot be reached since the scan stays under the recipient prefix.
func (n NotificationRepository) MarkRead(recipientID string, ids []string) ([]string, error) {
	wanted := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	var marked []string
	err := n.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(notificationPrefix(recipientID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key          []byte
			notification domain.Notification
		}
		var updates []pending
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var notification domain.Notification
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &notification) }); err != nil {
				return err
			}
			if notification.Read {
				continue
			}
			if _, ok := wanted[notification.ID]; len(wanted) > 0 && !ok {
				continue
			}
			notification.Read = true
			updates = append(updates, pending{key: item.KeyCopy(nil), notification: notification})
		}
		for _, u := range updates {
			if err := setJSON(txn, string(u.key), u.notification); err != nil {
				return err
			}
			marked = append(marked, u.notification.ID)
		}
		return nil
	})
	return marked, err
}
