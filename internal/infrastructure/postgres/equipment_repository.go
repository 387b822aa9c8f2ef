package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stroyrent/rentbot/internal/domain/equipment"
)

// EquipmentRepository implements equipment.Repository.
type EquipmentRepository struct {
	pool *pgxpool.Pool
}

func NewEquipmentRepository(pool *pgxpool.Pool) *EquipmentRepository {
	return &EquipmentRepository{pool: pool}
}

const equipmentColumns = `id, name, description, price_per_day, category_id, specs, image_path, created_at, updated_at`

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*equipment.Equipment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment WHERE id=$1
	`, id)
	return scanEquipment(row)
}

func (r *EquipmentRepository) GetByName(ctx context.Context, name string) (*equipment.Equipment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment WHERE name=$1
	`, name)
	return scanEquipment(row)
}

func (r *EquipmentRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*equipment.Equipment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment WHERE category_id=$1 ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*equipment.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, eq)
	}
	return items, rows.Err()
}

func (r *EquipmentRepository) ListCategories(ctx context.Context) ([]*equipment.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, image_path, created_at, updated_at
		FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []*equipment.Category
	for rows.Next() {
		var c equipment.Category
		var description, imagePath *string
		if err := rows.Scan(&c.ID, &c.Name, &description, &imagePath, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if description != nil {
			c.Description = *description
		}
		if imagePath != nil {
			c.ImagePath = *imagePath
		}
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}

func scanEquipment(row pgx.Row) (*equipment.Equipment, error) {
	var eq equipment.Equipment
	var description, imagePath *string
	var specs json.RawMessage
	err := row.Scan(&eq.ID, &eq.Name, &description, &eq.PricePerDay, &eq.CategoryID, &specs, &imagePath, &eq.CreatedAt, &eq.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if description != nil {
		eq.Description = *description
	}
	if imagePath != nil {
		eq.ImagePath = *imagePath
	}
	if len(specs) > 0 {
		eq.Specs = specs
	}
	return &eq, nil
}
