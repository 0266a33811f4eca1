package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"market-service/internal/apperr"
	"market-service/internal/models"

	"github.com/lib/pq"
)

// CreateUser inserts a new user. Returns Conflict if the nickname is taken.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (nickname, password_hash)
		VALUES ($1, $2)
		RETURNING id, balance, frozen, created_at`

	err := s.db.GetContext(ctx, user, query, user.Nickname, user.PasswordHash)
	if isUniqueViolation(err) {
		return apperr.Conflict("nickname already taken")
	}
	return err
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByNickname retrieves a user by nickname
func (s *Store) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE nickname = $1", nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers returns users matching the nickname substring, newest first
// when the query is empty.
func (s *Store) SearchUsers(ctx context.Context, q string, limit int) ([]models.User, error) {
	var users []models.User
	if q != "" {
		err := s.db.SelectContext(ctx, &users,
			"SELECT * FROM users WHERE nickname ILIKE $1 ORDER BY id LIMIT $2", "%"+q+"%", limit)
		return users, err
	}
	err := s.db.SelectContext(ctx, &users,
		"SELECT * FROM users ORDER BY id DESC LIMIT $1", limit)
	return users, err
}

// CreditAdjustTx applies an administrative balance change inside a single
// transaction: the balance row is locked, the guard is validated, and the
// audit operation row is written together with the balance update. A
// negative delta may not drive the balance below zero.
func (s *Store) CreditAdjustTx(ctx context.Context, userID, delta int64) (*models.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.GetContext(ctx, &balance,
		"SELECT balance FROM users WHERE id = $1 FOR UPDATE", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user balance: %w", err)
	}

	if delta < 0 && balance+delta < 0 {
		return nil, apperr.InsufficientFunds("insufficient funds for debit")
	}

	opType := models.OpTypeAdminCredit
	amount := delta
	if delta < 0 {
		opType = models.OpTypeAdminDebit
		amount = -delta
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance + $1 WHERE id = $2", delta, userID); err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO operations (user_id, type, amount, status) VALUES ($1, $2, $3, $4)",
		userID, opType, amount, models.OpStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to record operation: %w", err)
	}

	var user models.User
	if err := tx.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &user, nil
}

// WithdrawTx debits the available balance and records a pending withdrawal
// operation atomically.
func (s *Store) WithdrawTx(ctx context.Context, userID, amount int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.GetContext(ctx, &balance,
		"SELECT balance FROM users WHERE id = $1 FOR UPDATE", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock user balance: %w", err)
	}
	if balance < amount {
		return apperr.InsufficientFunds("insufficient funds")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance - $1 WHERE id = $2", amount, userID); err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO operations (user_id, type, amount, status) VALUES ($1, $2, $3, $4)",
		userID, models.OpTypeWithdraw, amount, models.OpStatusPending); err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}
	return tx.Commit()
}

// CreateOperation appends a single audit row (used for mock topups, which do
// not move the balance until confirmed).
func (s *Store) CreateOperation(ctx context.Context, op *models.Operation) error {
	query := `
		INSERT INTO operations (user_id, type, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, op, query, op.UserID, op.Type, op.Amount, op.Status)
}

// ListOperations returns a user's audit trail, newest first.
func (s *Store) ListOperations(ctx context.Context, userID int64) ([]models.Operation, error) {
	var ops []models.Operation
	err := s.db.SelectContext(ctx, &ops,
		"SELECT * FROM operations WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return ops, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
