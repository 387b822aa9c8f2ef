package company

import (
	"context"
	"time"
)

// Contact holds the company card shown on the contacts screen.
type Contact struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"companyName"`
	Description string    `json:"description,omitempty"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Telegram    string    `json:"telegram"`
	Address     string    `json:"address,omitempty"`
	WorkHours   string    `json:"workHours,omitempty"`
	Website     string    `json:"website,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository defines contact card persistence.
type Repository interface {
	GetActive(ctx context.Context) (*Contact, error)
}
