package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"market-service/internal/apperr"
	"market-service/internal/models"
)

const (
	testSellerID   = int64(10)
	testBuyerID    = int64(20)
	testOutsiderID = int64(99)
)

func testDeal(status string) (*models.Deal, *models.Item) {
	deal := &models.Deal{ID: 5, ItemID: 1, BuyerID: testBuyerID, Price: 1500, Status: status}
	item := &models.Item{ID: 1, SellerID: testSellerID, Price: 1500}
	return deal, item
}

func TestGuardSellerConfirm(t *testing.T) {
	deal, item := testDeal(models.DealStatusPending)

	assert.NoError(t, guardSellerConfirm(deal, item, testSellerID))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guardSellerConfirm(deal, item, testBuyerID)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guardSellerConfirm(deal, item, testOutsiderID)))

	for _, status := range []string{
		models.DealStatusSellerConfirmed,
		models.DealStatusCompleted,
		models.DealStatusDispute,
	} {
		deal, item := testDeal(status)
		err := guardSellerConfirm(deal, item, testSellerID)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "status %s", status)
	}
}

func TestGuardComplete(t *testing.T) {
	deal, _ := testDeal(models.DealStatusSellerConfirmed)

	assert.NoError(t, guardComplete(deal, testBuyerID))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guardComplete(deal, testSellerID)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guardComplete(deal, testOutsiderID)))

	// pending completion is a policy decision, the buyer does not have to
	// wait for the seller
	deal, _ = testDeal(models.DealStatusPending)
	if allowCompleteWithoutSellerConfirm {
		assert.NoError(t, guardComplete(deal, testBuyerID))
	} else {
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(guardComplete(deal, testBuyerID)))
	}

	for _, status := range []string{models.DealStatusCompleted, models.DealStatusDispute} {
		deal, _ := testDeal(status)
		err := guardComplete(deal, testBuyerID)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "status %s", status)
	}
}

func TestGuardDispute(t *testing.T) {
	deal, item := testDeal(models.DealStatusPending)

	assert.NoError(t, guardDispute(deal, item, testBuyerID))
	assert.NoError(t, guardDispute(deal, item, testSellerID))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guardDispute(deal, item, testOutsiderID)))

	deal, item = testDeal(models.DealStatusSellerConfirmed)
	assert.NoError(t, guardDispute(deal, item, testBuyerID))

	// re-raising an open dispute is allowed, closing states are not
	deal, item = testDeal(models.DealStatusDispute)
	assert.NoError(t, guardDispute(deal, item, testSellerID))

	deal, item = testDeal(models.DealStatusCompleted)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(guardDispute(deal, item, testBuyerID)))
}
