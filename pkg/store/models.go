package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type ItemModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Price     float64
	Category  string `gorm:"index"`
	SKU       string `gorm:"column:sku"`
	Image     string
	CreatedAt time.Time `gorm:"not null;index"`
}

type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Role         string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// SettingsModel stores one settings document per user. Fields live in a
// jsonb blob so merge-writes can carry keys the server does not know about.
type SettingsModel struct {
	UserID    string         `gorm:"primaryKey"`
	Data      datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time
}
