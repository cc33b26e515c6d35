package store

import (
	"errors"

	"lamarkesa/pkg/domain"
)

// ErrItemNotFound is returned by partial updates targeting a missing item.
var ErrItemNotFound = errors.New("item not found")

// Store defines persistence operations for items, users, and settings.
type Store interface {
	// items
	SaveItem(domain.Item) error
	UpdateItem(id string, upd domain.ItemUpdate) error
	GetItem(id string) (domain.Item, bool, error)
	ListItems() ([]domain.Item, error)
	DeleteItem(id string) error

	// users
	SaveUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// settings, keyed by user ID; writes are merge-writes
	GetUserSettings(userID string) (domain.UserSettings, bool, error)
	SaveUserSettings(userID string, fields map[string]any) (domain.UserSettings, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
