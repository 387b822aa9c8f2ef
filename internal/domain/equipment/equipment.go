package equipment

import (
	"encoding/json"
	"time"
)

// Category groups equipment items in the catalog.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImagePath   string    `json:"imagePath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Equipment represents a rentable unit. PricePerDay is the current daily rate
// in minor currency units; the rate in force at booking time is copied onto
// the rental interval so later price changes do not affect issued bookings.
type Equipment struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	PricePerDay int64           `json:"pricePerDay"`
	CategoryID  int64           `json:"categoryId"`
	Specs       json.RawMessage `json:"specs,omitempty"`
	ImagePath   string          `json:"imagePath,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
