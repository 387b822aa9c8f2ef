package equipment

import "context"

// Repository defines catalog persistence. Lookups return (nil, nil) when the
// entity does not exist.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Equipment, error)
	GetByName(ctx context.Context, name string) (*Equipment, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*Equipment, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}
