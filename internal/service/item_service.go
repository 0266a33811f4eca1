package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"market-service/internal/apperr"
	"market-service/internal/dedup"
	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/store"
	"market-service/internal/titles"
	"market-service/internal/util"

	"go.uber.org/zap"
)

const hotItemsCacheTTL = 30 * time.Second

// hotItemsLimits are the only storefront page sizes ever served (and so ever
// cached); invalidation enumerates exactly these keys. 0 means no limit.
var hotItemsLimits = []int{0, 20, 50}

// clampHotLimit collapses an arbitrary requested limit onto the nearest
// served tier.
func clampHotLimit(limit int) int {
	switch {
	case limit <= 0:
		return 0
	case limit <= 20:
		return 20
	default:
		return 50
	}
}

// ItemService handles catalog listings.
type ItemService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewItemService creates a new item service
func NewItemService(store *store.Store, redis *redisclient.Client) *ItemService {
	return &ItemService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// CreateItemRequest is a manual listing submission.
type CreateItemRequest struct {
	GameID   int64  `json:"game_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Descr    string `json:"desc"`
	Price    int64  `json:"price" binding:"required,min=1"`
	PhotoURL string `json:"photo_url" binding:"required"`
}

// Create stores a manual listing. The title is cleaned the same way imports
// clean theirs, so the dedup key catches a re-listing of an imported item
// under any legacy key scheme.
func (s *ItemService) Create(ctx context.Context, sellerID int64, req *CreateItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Create")
	defer span.End()

	if _, err := s.store.GetGameByID(ctx, req.GameID); err != nil {
		return nil, err
	}

	title := titles.Cleanup(req.Name)
	titleKey := titles.NormalizeForDedup(title)

	exists, err := s.store.DedupKeyExists(ctx, dedup.AllVariants(req.GameID, sellerID, titleKey))
	if err != nil {
		return nil, fmt.Errorf("failed to check dedup key: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("similar item already exists")
	}

	item := &models.Item{
		GameID:   req.GameID,
		SellerID: sellerID,
		Name:     title,
		Descr:    req.Descr,
		Price:    req.Price,
		PhotoURL: req.PhotoURL,
		Status:   models.ItemStatusActive,
		DedupKey: dedup.CurrentKey(req.GameID, sellerID, titleKey),
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.invalidateHotItems(ctx)
	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.Int64("seller_id", sellerID),
		zap.String("title", title))
	return item, nil
}

// ListGames returns the game catalog.
func (s *ItemService) ListGames(ctx context.Context) ([]models.Game, error) {
	return s.store.ListGames(ctx)
}

// CreateGame adds a catalog category.
func (s *ItemService) CreateGame(ctx context.Context, name, category, bannerURL string) (*models.Game, error) {
	game := &models.Game{Name: name, Category: category}
	if bannerURL != "" {
		game.BannerURL = sql.NullString{String: bannerURL, Valid: true}
	}
	if err := s.store.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// ListActive returns a randomized slice of active listings, cached briefly
// in Redis because it backs the storefront page.
func (s *ItemService) ListActive(ctx context.Context, limit int) ([]models.Item, error) {
	limit = clampHotLimit(limit)
	cacheKey := fmt.Sprintf("hot-items:%d", limit)

	var cached []models.Item
	if ok, err := s.redis.CacheGet(ctx, cacheKey, &cached); err != nil {
		s.logger.Warn("Hot items cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	items, err := s.store.ListActiveItems(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.redis.CacheSet(ctx, cacheKey, items, hotItemsCacheTTL); err != nil {
		s.logger.Warn("Hot items cache write failed", zap.Error(err))
	}
	return items, nil
}

// ListByGame returns active listings in a game.
func (s *ItemService) ListByGame(ctx context.Context, gameID int64) ([]models.Item, error) {
	return s.store.ListItemsByGame(ctx, gameID)
}

// ListBySeller returns all of a seller's listings.
func (s *ItemService) ListBySeller(ctx context.Context, sellerID int64) ([]models.Item, error) {
	return s.store.ListItemsBySeller(ctx, sellerID)
}

// SanitizeTitles re-runs title cleanup over the whole catalog and rewrites
// names that changed. Admin maintenance for listings imported before the
// cleanup rules existed.
func (s *ItemService) SanitizeTitles(ctx context.Context) (int, error) {
	items, err := s.store.ListAllItems(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range items {
		clean := titles.Cleanup(items[i].Name)
		if clean == items[i].Name {
			continue
		}
		if err := s.store.UpdateItemName(ctx, items[i].ID, clean); err != nil {
			s.logger.Error("Failed to sanitize title",
				zap.Int64("item_id", items[i].ID),
				zap.Error(err))
			continue
		}
		changed++
	}

	s.logger.Info("Title sanitation finished",
		zap.Int("scanned", len(items)),
		zap.Int("changed", changed))
	return changed, nil
}

func (s *ItemService) invalidateHotItems(ctx context.Context) {
	for _, limit := range hotItemsLimits {
		if err := s.redis.CacheInvalidate(ctx, fmt.Sprintf("hot-items:%d", limit)); err != nil {
			s.logger.Warn("Hot items cache invalidation failed", zap.Error(err))
		}
	}
}
