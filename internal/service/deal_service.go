package service

import (
	"context"
	"fmt"

	"market-service/internal/apperr"
	"market-service/internal/broker"
	"market-service/internal/models"
	"market-service/internal/store"
	"market-service/internal/util"

	"go.uber.org/zap"
)

// allowCompleteWithoutSellerConfirm lets the buyer complete a deal straight
// from pending, without waiting for the seller's confirmation. The funds
// still move atomically either way.
const allowCompleteWithoutSellerConfirm = true

// DealService drives the escrow state machine: buy freezes the buyer's
// funds, completion releases them to the seller, dispute parks the deal for
// manual resolution.
type DealService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewDealService creates a new deal service
func NewDealService(store *store.Store, eventPublisher *broker.EventPublisher) *DealService {
	return &DealService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Buy purchases an item for the buyer: validates the listing, freezes the
// price and reserves the item in one transaction.
func (s *DealService) Buy(ctx context.Context, itemID, buyerID int64) (*models.Deal, error) {
	ctx, span := util.StartSpan(ctx, "DealService.Buy")
	defer span.End()

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID == buyerID {
		util.DealsFailedTotal.WithLabelValues("own_item").Inc()
		return nil, apperr.Validation("cannot buy your own item")
	}
	if item.Status != models.ItemStatusActive {
		util.DealsFailedTotal.WithLabelValues("not_active").Inc()
		return nil, apperr.Conflict("item is not available")
	}

	deal, err := s.store.CreateDealTx(ctx, item.ID, buyerID, item.Price)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInsufficientFunds:
			util.DealsFailedTotal.WithLabelValues("insufficient_funds").Inc()
		case apperr.KindConflict:
			util.DealsFailedTotal.WithLabelValues("concurrent_buy").Inc()
		}
		return nil, err
	}

	util.DealsCreatedTotal.Inc()
	util.FundsFrozenTotal.Add(float64(deal.Price))
	s.logger.Info("Deal created",
		zap.Int64("deal_id", deal.ID),
		zap.Int64("item_id", item.ID),
		zap.Int64("buyer_id", buyerID),
		zap.Int64("price", deal.Price))

	if err := s.eventPublisher.PublishDealEvent(ctx, models.EventTypeDealCreated, deal, item.SellerID); err != nil {
		s.logger.Error("Failed to publish DealCreated event", zap.Error(err))
	}
	return deal, nil
}

// SellerConfirm acknowledges delivery on the seller's side. Only the item's
// seller may confirm, and only from pending.
func (s *DealService) SellerConfirm(ctx context.Context, dealID, userID int64) error {
	ctx, span := util.StartSpan(ctx, "DealService.SellerConfirm")
	defer span.End()

	deal, item, err := s.loadDealWithItem(ctx, dealID)
	if err != nil {
		return err
	}
	if err := guardSellerConfirm(deal, item, userID); err != nil {
		countGuardFailure(err)
		return err
	}

	if err := s.store.ConfirmDeal(ctx, dealID); err != nil {
		util.DealsFailedTotal.WithLabelValues("bad_transition").Inc()
		return err
	}

	s.logger.Info("Deal confirmed by seller", zap.Int64("deal_id", dealID))
	if err := s.eventPublisher.PublishDealEvent(ctx, models.EventTypeDealSellerConfirmed, deal, item.SellerID); err != nil {
		s.logger.Error("Failed to publish DealSellerConfirmed event", zap.Error(err))
	}
	return nil
}

// Complete is the buyer's acceptance: releases frozen funds to the seller
// and closes the deal.
func (s *DealService) Complete(ctx context.Context, dealID, userID int64) error {
	ctx, span := util.StartSpan(ctx, "DealService.Complete")
	defer span.End()

	deal, item, err := s.loadDealWithItem(ctx, dealID)
	if err != nil {
		return err
	}
	if err := guardComplete(deal, userID); err != nil {
		countGuardFailure(err)
		return err
	}

	if err := s.store.CompleteDealTx(ctx, deal.ID, item.ID, deal.BuyerID, item.SellerID, deal.Price); err != nil {
		util.DealsFailedTotal.WithLabelValues("bad_transition").Inc()
		return err
	}

	util.DealsCompletedTotal.Inc()
	util.FundsReleasedTotal.Add(float64(deal.Price))
	s.logger.Info("Deal completed",
		zap.Int64("deal_id", deal.ID),
		zap.Int64("seller_id", item.SellerID),
		zap.Int64("price", deal.Price))

	if err := s.eventPublisher.PublishDealEvent(ctx, models.EventTypeDealCompleted, deal, item.SellerID); err != nil {
		s.logger.Error("Failed to publish DealCompleted event", zap.Error(err))
	}
	return nil
}

// Dispute parks a non-completed deal; frozen funds stay frozen until support
// resolves it.
func (s *DealService) Dispute(ctx context.Context, dealID, userID int64) error {
	ctx, span := util.StartSpan(ctx, "DealService.Dispute")
	defer span.End()

	deal, item, err := s.loadDealWithItem(ctx, dealID)
	if err != nil {
		return err
	}
	if err := guardDispute(deal, item, userID); err != nil {
		countGuardFailure(err)
		return err
	}

	if err := s.store.DisputeDeal(ctx, dealID); err != nil {
		util.DealsFailedTotal.WithLabelValues("bad_transition").Inc()
		return err
	}

	util.DealsDisputedTotal.Inc()
	s.logger.Warn("Deal disputed", zap.Int64("deal_id", dealID), zap.Int64("by_user", userID))

	if err := s.eventPublisher.PublishDealEvent(ctx, models.EventTypeDealDisputed, deal, item.SellerID); err != nil {
		s.logger.Error("Failed to publish DealDisputed event", zap.Error(err))
	}
	return nil
}

// ListForUser returns the user's deals with their role in each.
func (s *DealService) ListForUser(ctx context.Context, userID int64) ([]models.DealView, error) {
	return s.store.ListDealsForUser(ctx, userID)
}

// Purchases returns the user's buy history.
func (s *DealService) Purchases(ctx context.Context, userID int64) ([]store.PurchaseRow, error) {
	return s.store.ListPurchases(ctx, userID)
}

// Sales returns the user's sale history.
func (s *DealService) Sales(ctx context.Context, userID int64) ([]store.PurchaseRow, error) {
	return s.store.ListSales(ctx, userID)
}

// Transition guards. Each one decides whether an actor may drive a deal
// transition from its current state; the store predicates re-check the state
// inside the transaction, so a concurrent transition still loses cleanly.

func guardSellerConfirm(deal *models.Deal, item *models.Item, userID int64) error {
	if item.SellerID != userID {
		return apperr.Forbidden("only the seller can confirm this deal")
	}
	if deal.Status != models.DealStatusPending {
		return apperr.Conflict("deal is not in a confirmable state")
	}
	return nil
}

func guardComplete(deal *models.Deal, userID int64) error {
	if deal.BuyerID != userID {
		return apperr.Forbidden("only the buyer can complete this deal")
	}
	switch deal.Status {
	case models.DealStatusPending:
		if !allowCompleteWithoutSellerConfirm {
			return apperr.Conflict("seller has not confirmed the deal yet")
		}
	case models.DealStatusSellerConfirmed:
	default:
		return apperr.Conflict("deal cannot be completed in its current state")
	}
	return nil
}

func guardDispute(deal *models.Deal, item *models.Item, userID int64) error {
	if deal.BuyerID != userID && item.SellerID != userID {
		return apperr.Forbidden("only deal participants can open a dispute")
	}
	if deal.Status == models.DealStatusCompleted {
		return apperr.Conflict("deal is already completed")
	}
	return nil
}

func countGuardFailure(err error) {
	if apperr.KindOf(err) == apperr.KindConflict {
		util.DealsFailedTotal.WithLabelValues("bad_transition").Inc()
	}
}

func (s *DealService) loadDealWithItem(ctx context.Context, dealID int64) (*models.Deal, *models.Item, error) {
	deal, err := s.store.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.store.GetItemByID(ctx, deal.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deal item: %w", err)
	}
	return deal, item, nil
}
