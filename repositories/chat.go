//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

type IChatRepository interface {
	SaveSession(session domain.ChatSession) error
	GetSession(id string) (domain.ChatSession, error)
	UpdateSession(id string, mutate func(*domain.ChatSession) error) (domain.ChatSession, error)
	StoreMessage(message domain.ChatMessage) error
	GetMessages(sessionID string, cursor *string) ([]domain.ChatMessage, *string, error)
	MarkRead(sessionID string, messageIDs []string, readerID string, at time.Time) ([]string, error)
}

type ChatRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewChatRepository(db *badger.DB, log *slog.Logger, limitMessages *int) ChatRepository {
	return ChatRepository{db: db, log: log, limitMessages: limitMessages}
}

func sessionKey(id string) string { return "chat:session:" + id }

func messagePrefix(sessionID string) string { return fmt.Sprintf("chat:msg:%s:", sessionID) }

// checkSessionID keeps ':' out of session ids, one session's message keys
// would otherwise fall under another session's prefix.
func checkSessionID(id string) error {
	if id == "" || strings.Contains(id, ":") {
		return fmt.Errorf("%w: invalid session id %q", errors.ErrInvalidBody, id)
	}
	return nil
}

func messageIndexKey(sessionID, messageID string) string {
	return fmt.Sprintf("chat:msgid:%s:%s", sessionID, messageID)
}

func (c ChatRepository) SaveSession(session domain.ChatSession) error {
	if err := checkSessionID(session.ID); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, sessionKey(session.ID), session)
	})
}

func (c ChatRepository) GetSession(id string) (domain.ChatSession, error) {
	var session domain.ChatSession
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(id), &session)
	})
	return session, err
}

func (c ChatRepository) UpdateSession(id string, mutate func(*domain.ChatSession) error) (domain.ChatSession, error) {
	return updateJSON(c.db, sessionKey(id), mutate)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "chat:msg:{session}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the message id as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// A second key indexes the message by id for read receipts.
func (c ChatRepository) StoreMessage(message domain.ChatMessage) error {
	if err := checkSessionID(message.SessionID); err != nil {
		return err
	}
	key := fmt.Sprintf("%s%019d:%s", messagePrefix(message.SessionID), message.CreatedAt.UnixNano(), message.ID)
	return c.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, key, message); err != nil {
			return err
		}
		return txn.Set([]byte(messageIndexKey(message.SessionID, message.ID)), []byte(key))
	})
}

// GetMessages pages backwards from the newest message, or from the cursor
// returned by a previous call. Each page is returned oldest first.
func (c ChatRepository) GetMessages(sessionID string, cursor *string) ([]domain.ChatMessage, *string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return nil, nil, err
	}
	var messages []domain.ChatMessage
	var lastKey string
	err := c.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(sessionID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Start past the newest possible key, then walk back in time
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if c.limitMessages != nil && len(messages) == *c.limitMessages {
				c.log.Debug(fmt.Sprintf("Maximum of %d message reached", *c.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var message domain.ChatMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		return messages, nil, nil
	}
	slices.Reverse(messages)
	return messages, &lastKey, nil
}

// MarkRead stamps the given messages as read by readerID. Messages the
// reader wrote, messages already read and unknown ids are skipped. The ids
// actually stamped are returned.
func (c ChatRepository) MarkRead(sessionID string, messageIDs []string, readerID string, at time.Time) ([]string, error) {
	var marked []string
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(messageIDs) {
			item, err := txn.Get([]byte(messageIndexKey(sessionID, id)))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			primary, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var message domain.ChatMessage
			if err := getJSON(txn, string(primary), &message); err != nil {
				return err
			}
			if message.ReadAt != nil || (readerID != "" && message.SenderID == readerID) {
				continue
			}
			message.ReadAt = lo.ToPtr(at)
			if err := setJSON(txn, string(primary), message); err != nil {
				return err
			}
			marked = append(marked, id)
		}
		return nil
	})
	return marked, err
}
