package repository

import (
	"database/sql"

	"sharedcart/pkg/logger"
	"sharedcart/store"
)

type ProductRepository struct {
	DB *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{DB: db}
}

func (r *ProductRepository) List() ([]store.Product, error) {
	rows, err := r.DB.Query(`
		SELECT id, created_at, name, price, category, description, user_id
		FROM products ORDER BY created_at ASC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list products: %v", err)
		return nil, err
	}
	defer rows.Close()

	var products []store.Product
	for rows.Next() {
		var p store.Product
		var price sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.Name, &price, &p.Category, &p.Description, &p.UserID); err != nil {
			continue
		}
		if price.Valid {
			p.Price = &price.Float64
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *ProductRepository) GetByID(id string) (store.Product, error) {
	var p store.Product
	var price sql.NullFloat64
	err := r.DB.QueryRow(`
		SELECT id, created_at, name, price, category, description, user_id
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.CreatedAt, &p.Name, &price, &p.Category, &p.Description, &p.UserID)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get product %s: %v", id, err)
	}
	if price.Valid {
		p.Price = &price.Float64
	}
	return p, err
}

func (r *ProductRepository) Create(id, name string, price *float64, category, description, userID string) (store.Product, error) {
	var p store.Product
	var dbPrice sql.NullFloat64
	err := r.DB.QueryRow(`INSERT INTO products (id, created_at, name, price, category, description, user_id)
		VALUES ($1, NOW(), $2, $3, $4, $5, $6)
		RETURNING id, created_at, name, price, category, description, user_id`,
		id, name, toNullFloat(price), category, description, userID).
		Scan(&p.ID, &p.CreatedAt, &p.Name, &dbPrice, &p.Category, &p.Description, &p.UserID)
	if err != nil {
		logger.Sugar.Errorf("Failed to create product: %v", err)
	}
	if dbPrice.Valid {
		p.Price = &dbPrice.Float64
	}
	return p, err
}

// Update is owner-scoped and last-write-wins; concurrent edits are not
// reconciled.
func (r *ProductRepository) Update(id, name string, price *float64, category, description, userID string) (int64, error) {
	result, err := r.DB.Exec(`UPDATE products SET name = $1, price = $2, category = $3, description = $4
		WHERE id = $5 AND user_id = $6`,
		name, toNullFloat(price), category, description, id, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update product %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ProductRepository) Delete(id, userID string) (int64, error) {
	result, err := r.DB.Exec("DELETE FROM products WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete product %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
