package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market-service/internal/apperr"
	"market-service/internal/broker"
	"market-service/internal/dedup"
	"market-service/internal/importer"
	"market-service/internal/models"
	"market-service/internal/redisclient"
	"market-service/internal/store"
	"market-service/internal/titles"
	"market-service/internal/uploads"
	"market-service/internal/util"

	"go.uber.org/zap"
)

// ImportService orchestrates a catalog import run: collect candidates from
// the marketplace page, dedup them against the seller's catalog, download
// images and insert the survivors.
type ImportService struct {
	store          *store.Store
	redis          *redisclient.Client
	collector      *importer.Collector
	uploads        *uploads.Store
	eventPublisher *broker.EventPublisher
	maxItems       int
	lockTTL        time.Duration
	logger         *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(
	store *store.Store,
	redis *redisclient.Client,
	collector *importer.Collector,
	uploadStore *uploads.Store,
	eventPublisher *broker.EventPublisher,
	maxItems int,
	lockTTL time.Duration,
) *ImportService {
	return &ImportService{
		store:          store,
		redis:          redis,
		collector:      collector,
		uploads:        uploadStore,
		eventPublisher: eventPublisher,
		maxItems:       maxItems,
		lockTTL:        lockTTL,
		logger:         util.GetLogger(),
	}
}

// ImportRequest describes one import run. Either URL or HTML must be set;
// HTML is the escape hatch when the marketplace's bot protection blocks the
// server-side fetch.
type ImportRequest struct {
	GameID int64  `json:"game_id" binding:"required"`
	URL    string `json:"url"`
	HTML   string `json:"html"`
	Limit  int    `json:"limit"`
}

// CreatedItem is one successfully imported listing in the report.
type CreatedItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	PhotoURL string `json:"photoUrl"`
}

// ImportError records a per-candidate failure without aborting the run.
type ImportError struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// ImportReport is the full outcome of a run.
type ImportReport struct {
	TotalFound   int            `json:"totalFound"`
	Processed    int            `json:"processed"`
	CreatedCount int            `json:"createdCount"`
	Created      []CreatedItem  `json:"created"`
	Errors       []ImportError  `json:"errors"`
	Stats        importer.Stats `json:"stats"`
}

// Run executes an import for one seller and game. Runs for the same pair
// are serialized through a Redis lock so concurrent requests cannot race
// each other's dedup snapshots.
func (s *ImportService) Run(ctx context.Context, sellerID int64, req *ImportRequest) (*ImportReport, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.Run")
	defer span.End()

	if req.HTML == "" && !strings.HasPrefix(strings.ToLower(req.URL), "http") {
		return nil, apperr.Validation("provide a valid URL or paste the page HTML")
	}
	if _, err := s.store.GetGameByID(ctx, req.GameID); err != nil {
		return nil, err
	}

	max := req.Limit
	if max <= 0 || max > s.maxItems {
		max = s.maxItems
	}

	lockKey := fmt.Sprintf("import:%d:%d", req.GameID, sellerID)
	acquired, err := s.redis.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !acquired {
		return nil, apperr.Conflict("an import for this game is already running")
	}
	defer func() {
		if err := s.redis.ReleaseLock(context.Background(), lockKey); err != nil {
			s.logger.Warn("Failed to release import lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	util.ImportRunsTotal.Inc()
	start := time.Now()
	defer func() {
		util.ImportRunLatency.Observe(time.Since(start).Seconds())
	}()

	cards, err := s.collector.Collect(ctx, req.URL, req.HTML, max)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingTitleKeys(ctx, req.GameID, sellerID)
	if err != nil {
		return nil, err
	}

	uniq, stats := importer.DedupAgainstExisting(cards, existing, max)
	util.ImportItemsSkippedTotal.WithLabelValues("existing").Add(float64(stats.SkipExisting))
	util.ImportItemsSkippedTotal.WithLabelValues("in_run").Add(float64(stats.SkipInRun))

	report := &ImportReport{
		TotalFound: len(cards),
		Processed:  len(uniq),
		Created:    []CreatedItem{},
		Errors:     []ImportError{},
	}

	for _, cand := range uniq {
		created, err := s.importOne(ctx, req.GameID, sellerID, req.URL, cand, &stats)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{
				Title:    cand.Title,
				ImageURL: cand.ImageURL,
				Error:    err.Error(),
			})
			continue
		}
		if created != nil {
			report.Created = append(report.Created, *created)
		}
	}

	report.CreatedCount = len(report.Created)
	report.Stats = stats
	report.Stats.TotalFound = len(cards)

	s.logger.Info("Import run finished",
		zap.Int64("game_id", req.GameID),
		zap.Int64("seller_id", sellerID),
		zap.Int("total_found", report.TotalFound),
		zap.Int("created", report.CreatedCount),
		zap.Int("errors", len(report.Errors)))

	event := &models.ItemsImportedEvent{
		GameID:       req.GameID,
		SellerID:     sellerID,
		TotalFound:   report.TotalFound,
		CreatedCount: report.CreatedCount,
		ErrorCount:   len(report.Errors),
	}
	if err := s.eventPublisher.PublishItemsImported(ctx, event); err != nil {
		s.logger.Error("Failed to publish ItemsImported event", zap.Error(err))
	}

	return report, nil
}

// importOne persists a single candidate: dedup pre-check, image download,
// file save, insert. A nil result with nil error means a silent dedup skip.
func (s *ImportService) importOne(ctx context.Context, gameID, sellerID int64, referer string, cand importer.Candidate, stats *importer.Stats) (*CreatedItem, error) {
	titleKey := cand.TitleKey
	if titleKey == "" {
		titleKey = titles.NormalizeForDedup(cand.Title)
	}
	dedupKey := dedup.CurrentKey(gameID, sellerID, titleKey)

	exists, err := s.store.DedupKeyExists(ctx, dedup.AllVariants(gameID, sellerID, titleKey))
	if err != nil {
		return nil, err
	}
	if exists {
		stats.DBDup++
		util.ImportItemsSkippedTotal.WithLabelValues("db_dup").Inc()
		return nil, nil
	}

	data, ext, err := s.collector.Fetcher().FetchImage(ctx, cand.ImageURL, referer)
	if err != nil {
		util.ImageDownloadsFailed.Inc()
		return nil, fmt.Errorf("image download: %w", err)
	}

	photoURL, err := s.uploads.Save(uploads.SubdirItems, "item", ext, data)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		GameID:   gameID,
		SellerID: sellerID,
		Name:     cand.Title,
		Price:    cand.Price,
		PhotoURL: photoURL,
		Status:   models.ItemStatusActive,
		DedupKey: dedupKey,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		s.uploads.Remove(photoURL)
		if apperr.KindOf(err) == apperr.KindConflict {
			stats.DBDup++
			util.ImportItemsSkippedTotal.WithLabelValues("db_dup").Inc()
			return nil, nil
		}
		return nil, err
	}

	util.ImportItemsCreatedTotal.Inc()
	return &CreatedItem{
		ID:       item.ID,
		Title:    item.Name,
		Price:    item.Price,
		PhotoURL: item.PhotoURL,
	}, nil
}

// existingTitleKeys snapshots the seller's current catalog in the game as
// normalized title keys.
func (s *ImportService) existingTitleKeys(ctx context.Context, gameID, sellerID int64) (map[string]bool, error) {
	names, err := s.store.ItemNamesForSellerGame(ctx, gameID, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing items: %w", err)
	}
	keys := make(map[string]bool, len(names))
	for _, name := range names {
		keys[titles.NormalizeForDedup(name)] = true
	}
	return keys, nil
}
