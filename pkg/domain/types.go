package domain

import "time"

type Category string

const (
	CategoryRings     Category = "rings"
	CategoryNecklaces Category = "necklaces"
	CategoryEarrings  Category = "earrings"
	CategoryBracelets Category = "bracelets"
	CategoryWatches   Category = "watches"
	CategoryOther     Category = "other"
)

// Categories is the fixed set offered by the UI and enforced on
// extraction output. Stored items may carry free-text categories.
var Categories = []Category{
	CategoryRings,
	CategoryNecklaces,
	CategoryEarrings,
	CategoryBracelets,
	CategoryWatches,
	CategoryOther,
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleDevs  UserRole = "devs"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// Item is one catalog entry. Every field except ID and CreatedAt is
// blank-tolerant; derivations treat a missing price as zero.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	SKU       string    `json:"sku"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ItemUpdate carries a partial-field update. Nil fields are left untouched.
type ItemUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Category *string  `json:"category,omitempty"`
	SKU      *string  `json:"sku,omitempty"`
	Image    *string  `json:"image,omitempty"`
}

// UserSettings holds per-user configuration. The API key is used only as
// input to the extraction caller. Extra keeps unknown fields round-tripping
// through merge-writes.
type UserSettings struct {
	OpenAIAPIKey string         `json:"openaiApiKey"`
	Extra        map[string]any `json:"-"`
}

// DefaultUserSettings is the record lazily created on first read.
func DefaultUserSettings() UserSettings {
	return UserSettings{OpenAIAPIKey: ""}
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"displayName,omitempty"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ExtractedItem is one normalized record returned by the extraction service.
type ExtractedItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	SKU      string  `json:"sku"`
}

// Stats are the aggregate figures shown above the catalog list.
type Stats struct {
	Total      int     `json:"total"`
	TotalValue float64 `json:"totalValue"`
	AvgPrice   float64 `json:"avgPrice"`
}
