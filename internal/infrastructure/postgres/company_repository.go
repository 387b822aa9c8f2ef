package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stroyrent/rentbot/internal/domain/company"
)

// CompanyRepository implements company.Repository.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

func (r *CompanyRepository) GetActive(ctx context.Context) (*company.Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, company_name, description, phone, email, telegram, address, work_hours, website, is_active, created_at, updated_at
		FROM company_contacts WHERE is_active ORDER BY updated_at DESC LIMIT 1
	`)
	var c company.Contact
	var description, address, workHours, website *string
	err := row.Scan(&c.ID, &c.CompanyName, &description, &c.Phone, &c.Email, &c.Telegram, &address, &workHours, &website, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if description != nil {
		c.Description = *description
	}
	if address != nil {
		c.Address = *address
	}
	if workHours != nil {
		c.WorkHours = *workHours
	}
	if website != nil {
		c.Website = *website
	}
	return &c, nil
}
