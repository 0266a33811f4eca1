package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"market-service/internal/apperr"
	"market-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateItem inserts a listing. The dedup_key unique index is the last line
// of defense against duplicate listings; a violation surfaces as Conflict.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (game_id, seller_id, name, descr, price, photo_url, status, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, item, query,
		item.GameID, item.SellerID, item.Name, item.Descr, item.Price,
		item.PhotoURL, item.Status, item.DedupKey)
	if isUniqueViolation(err) {
		return apperr.Conflict("similar item already exists")
	}
	return err
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("item not found")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DedupKeyExists reports whether any of the given keys (current or legacy
// variants) is already present.
func (s *Store) DedupKeyExists(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In("SELECT EXISTS(SELECT 1 FROM items WHERE dedup_key IN (?))", keys)
	if err != nil {
		return false, err
	}
	query = s.db.Rebind(query)

	var exists bool
	err = s.db.GetContext(ctx, &exists, query, args...)
	return exists, err
}

// ItemNamesForSellerGame returns the display names of a seller's listings in
// one game. The importer derives its existing-keys snapshot from these.
func (s *Store) ItemNamesForSellerGame(ctx context.Context, gameID, sellerID int64) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		"SELECT name FROM items WHERE game_id = $1 AND seller_id = $2", gameID, sellerID)
	return names, err
}

// ListActiveItems returns active listings, optionally limited.
func (s *Store) ListActiveItems(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	query := "SELECT * FROM items WHERE status = 'active' ORDER BY RANDOM()"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	err := s.db.SelectContext(ctx, &items, query)
	return items, err
}

// ListItemsByGame returns active listings for one game.
func (s *Store) ListItemsByGame(ctx context.Context, gameID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE game_id = $1 AND status = 'active'", gameID)
	return items, err
}

// ListItemsBySeller returns all of a seller's listings, newest first.
func (s *Store) ListItemsBySeller(ctx context.Context, sellerID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return items, err
}

// ListAllItems returns every listing (admin maintenance).
func (s *Store) ListAllItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM items ORDER BY id")
	return items, err
}

// UpdateItemName rewrites a listing's display name (title sanitation).
func (s *Store) UpdateItemName(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE items SET name = $1 WHERE id = $2", name, id)
	return err
}
