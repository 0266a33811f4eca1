package service

import (
	"context"

	"market-service/internal/apperr"
	"market-service/internal/models"
	"market-service/internal/store"
	"market-service/internal/util"

	"go.uber.org/zap"
)

// FinanceService handles balance operations outside of deals: topups,
// withdrawals and admin adjustments. Every balance change leaves an
// operation row behind.
type FinanceService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewFinanceService creates a new finance service
func NewFinanceService(store *store.Store) *FinanceService {
	return &FinanceService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Topup records a pending topup operation. There is no real payment
// provider; the operation completes via the admin credit path.
func (s *FinanceService) Topup(ctx context.Context, userID, amount int64) (*models.Operation, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	op := &models.Operation{
		UserID: userID,
		Type:   models.OpTypeTopup,
		Amount: amount,
		Status: models.OpStatusPending,
	}
	if err := s.store.CreateOperation(ctx, op); err != nil {
		return nil, err
	}
	s.logger.Info("Topup requested", zap.Int64("user_id", userID), zap.Int64("amount", amount))
	return op, nil
}

// Withdraw debits the available balance and records a pending withdrawal.
func (s *FinanceService) Withdraw(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return apperr.Validation("amount must be positive")
	}
	if err := s.store.WithdrawTx(ctx, userID, amount); err != nil {
		return err
	}
	s.logger.Info("Withdrawal requested", zap.Int64("user_id", userID), zap.Int64("amount", amount))
	return nil
}

// Operations returns the user's audit trail.
func (s *FinanceService) Operations(ctx context.Context, userID int64) ([]models.Operation, error) {
	return s.store.ListOperations(ctx, userID)
}

// AdminAdjust applies a signed balance delta to any user and returns the
// updated profile.
func (s *FinanceService) AdminAdjust(ctx context.Context, userID, delta int64) (*models.User, error) {
	if delta == 0 {
		return nil, apperr.Validation("delta must be non-zero")
	}
	user, err := s.store.CreditAdjustTx(ctx, userID, delta)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin balance adjustment",
		zap.Int64("user_id", userID),
		zap.Int64("delta", delta),
		zap.Int64("balance", user.Balance))
	return user, nil
}
