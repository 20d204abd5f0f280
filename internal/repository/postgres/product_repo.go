package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kistipay/financing-engine/internal/domain"
)

// ProductRepository implements domain.ProductRepository using PostgreSQL
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(id int32) (*domain.Product, error) {
	ctx := context.Background()
	var p domain.Product
	var price pgtype.Numeric
	var imageURL pgtype.Text
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price, image_url FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &price, &imageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	p.Price = pgNumericToDecimal(price)
	if imageURL.Valid {
		p.ImageURL = imageURL.String
	}
	return &p, nil
}
