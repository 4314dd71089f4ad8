package repository

import (
	"database/sql"

	"sharedcart/pkg/logger"
	"sharedcart/store"
)

type ItemRepository struct {
	DB *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{DB: db}
}

// List returns the full shopping list ordered by creation time, with the
// owner email joined in from profiles.
func (r *ItemRepository) List() ([]store.ShoppingItem, error) {
	rows, err := r.DB.Query(`
		SELECT i.id, i.created_at, i.text, i.quantity, i.user_id, i.completed, p.email
		FROM items i JOIN profiles p ON i.user_id = p.id
		ORDER BY i.created_at ASC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list items: %v", err)
		return nil, err
	}
	defer rows.Close()

	var items []store.ShoppingItem
	for rows.Next() {
		var it store.ShoppingItem
		if err := rows.Scan(&it.ID, &it.CreatedAt, &it.Text, &it.Quantity, &it.UserID, &it.Completed, &it.OwnerEmail); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *ItemRepository) GetByID(id string) (store.ShoppingItem, error) {
	var it store.ShoppingItem
	err := r.DB.QueryRow(`
		SELECT i.id, i.created_at, i.text, i.quantity, i.user_id, i.completed, p.email
		FROM items i JOIN profiles p ON i.user_id = p.id
		WHERE i.id = $1`, id).
		Scan(&it.ID, &it.CreatedAt, &it.Text, &it.Quantity, &it.UserID, &it.Completed, &it.OwnerEmail)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get item %s: %v", id, err)
	}
	return it, err
}

func (r *ItemRepository) Create(id, text, quantity, userID string) (store.ShoppingItem, error) {
	var it store.ShoppingItem
	err := r.DB.QueryRow(`INSERT INTO items (id, created_at, text, quantity, user_id, completed)
		VALUES ($1, NOW(), $2, $3, $4, FALSE)
		RETURNING id, created_at, text, quantity, user_id, completed`,
		id, text, quantity, userID).
		Scan(&it.ID, &it.CreatedAt, &it.Text, &it.Quantity, &it.UserID, &it.Completed)
	if err != nil {
		logger.Sugar.Errorf("Failed to create item: %v", err)
	}
	return it, err
}

// SetCompleted toggles the completion flag. Any authenticated user may
// complete any item, so the update is not owner-scoped.
func (r *ItemRepository) SetCompleted(id string, completed bool) (int64, error) {
	result, err := r.DB.Exec("UPDATE items SET completed = $1 WHERE id = $2", completed, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update item %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

// Delete is owner-scoped: the WHERE clause keeps other users' deletes from
// landing even if the UI check is bypassed.
func (r *ItemRepository) Delete(id, userID string) (int64, error) {
	result, err := r.DB.Exec("DELETE FROM items WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete item %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}
