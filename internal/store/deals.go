package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"market-service/internal/apperr"
	"market-service/internal/models"
)

// CreateDealTx performs the buy transition atomically: the buyer's balance
// row is locked, price moves from balance to frozen, the deal row is
// inserted and the item flips active -> reserved. The status predicate on
// the item update makes the loser of two concurrent buys fail cleanly with
// Conflict instead of double-reserving.
func (s *Store) CreateDealTx(ctx context.Context, itemID, buyerID, price int64) (*models.Deal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.GetContext(ctx, &balance,
		"SELECT balance FROM users WHERE id = $1 FOR UPDATE", buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock buyer balance: %w", err)
	}
	if balance < price {
		return nil, apperr.InsufficientFunds("insufficient funds")
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE items SET status = $1 WHERE id = $2 AND status = $3",
		models.ItemStatusReserved, itemID, models.ItemStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.Conflict("item is not available")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance - $1, frozen = frozen + $1 WHERE id = $2",
		price, buyerID); err != nil {
		return nil, fmt.Errorf("failed to freeze funds: %w", err)
	}

	var deal models.Deal
	if err := tx.GetContext(ctx, &deal, `
		INSERT INTO deals (item_id, buyer_id, price, status)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		itemID, buyerID, price, models.DealStatusPending); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO operations (user_id, type, amount, status) VALUES ($1, $2, $3, $4)",
		buyerID, models.OpTypeDealFreeze, price, models.OpStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to record freeze: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &deal, nil
}

// ConfirmDeal moves a pending deal to seller_confirmed. The status predicate
// rejects transitions from any other state.
func (s *Store) ConfirmDeal(ctx context.Context, dealID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deals SET status = $1 WHERE id = $2 AND status = $3",
		models.DealStatusSellerConfirmed, dealID, models.DealStatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("deal is not in a confirmable state")
	}
	return nil
}

// CompleteDealTx performs the buyer-complete transition atomically: the
// deal's price leaves the buyer's frozen column, lands on the seller's
// balance, the deal closes and the item is marked sold. The frozen amount is
// trusted to equal the deal price, an invariant established at freeze time.
func (s *Store) CompleteDealTx(ctx context.Context, dealID, itemID, buyerID, sellerID, price int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE deals SET status = $1 WHERE id = $2 AND status IN ($3, $4)",
		models.DealStatusCompleted, dealID, models.DealStatusPending, models.DealStatusSellerConfirmed)
	if err != nil {
		return fmt.Errorf("failed to close deal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("deal cannot be completed in its current state")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET frozen = frozen - $1 WHERE id = $2", price, buyerID); err != nil {
		return fmt.Errorf("failed to release frozen funds: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance + $1 WHERE id = $2", price, sellerID); err != nil {
		return fmt.Errorf("failed to credit seller: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE items SET status = $1 WHERE id = $2", models.ItemStatusSold, itemID); err != nil {
		return fmt.Errorf("failed to mark item sold: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO operations (user_id, type, amount, status) VALUES ($1, $2, $3, $4)",
		sellerID, models.OpTypeDealRelease, price, models.OpStatusCompleted); err != nil {
		return fmt.Errorf("failed to record release: %w", err)
	}

	return tx.Commit()
}

// DisputeDeal moves a non-completed deal into dispute. Frozen funds stay
// frozen; resolution is manual.
func (s *Store) DisputeDeal(ctx context.Context, dealID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deals SET status = $1 WHERE id = $2 AND status != $3",
		models.DealStatusDispute, dealID, models.DealStatusCompleted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("deal is already completed")
	}
	return nil
}

// GetDealByID retrieves a deal by ID
func (s *Store) GetDealByID(ctx context.Context, id int64) (*models.Deal, error) {
	var deal models.Deal
	err := s.db.GetContext(ctx, &deal, "SELECT * FROM deals WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("deal not found")
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// ListDealsForUser returns deals where the user is buyer or seller, with the
// computed role.
func (s *Store) ListDealsForUser(ctx context.Context, userID int64) ([]models.DealView, error) {
	query := `
		SELECT
			d.id, d.item_id, d.buyer_id, d.price, d.status, d.created_at,
			i.name AS item_name, i.photo_url AS item_photo, i.seller_id,
			seller.nickname AS seller_nickname,
			buyer.nickname AS buyer_nickname,
			CASE
				WHEN d.buyer_id = $1 THEN 'buyer'
				WHEN i.seller_id = $1 THEN 'seller'
				ELSE 'none'
			END AS role
		FROM deals d
		JOIN items i ON d.item_id = i.id
		JOIN users seller ON i.seller_id = seller.id
		JOIN users buyer ON d.buyer_id = buyer.id
		WHERE d.buyer_id = $1 OR i.seller_id = $1
		ORDER BY d.created_at DESC`

	var deals []models.DealView
	err := s.db.SelectContext(ctx, &deals, query, userID)
	return deals, err
}

// PurchaseRow is one entry of the purchase/sales history.
type PurchaseRow struct {
	Name      string         `db:"name" json:"name"`
	PhotoURL  string         `db:"photo_url" json:"photo_url"`
	Price     int64          `db:"price" json:"price"`
	CreatedAt sql.NullTime   `db:"created_at" json:"created_at"`
	Partner   sql.NullString `db:"partner" json:"partner,omitempty"`
}

// ListPurchases returns the user's buy history, newest first.
func (s *Store) ListPurchases(ctx context.Context, buyerID int64) ([]PurchaseRow, error) {
	query := `
		SELECT i.name, i.photo_url, d.price, d.created_at, seller.nickname AS partner
		FROM deals d
		JOIN items i ON d.item_id = i.id
		JOIN users seller ON i.seller_id = seller.id
		WHERE d.buyer_id = $1
		ORDER BY d.created_at DESC`

	var rows []PurchaseRow
	err := s.db.SelectContext(ctx, &rows, query, buyerID)
	return rows, err
}

// ListSales returns the user's sale history, newest first.
func (s *Store) ListSales(ctx context.Context, sellerID int64) ([]PurchaseRow, error) {
	query := `
		SELECT i.name, i.photo_url, d.price, d.created_at, buyer.nickname AS partner
		FROM deals d
		JOIN items i ON d.item_id = i.id
		JOIN users buyer ON d.buyer_id = buyer.id
		WHERE i.seller_id = $1
		ORDER BY d.created_at DESC`

	var rows []PurchaseRow
	err := s.db.SelectContext(ctx, &rows, query, sellerID)
	return rows, err
}
