package worker

import (
	"context"
	"fmt"

	"market-service/internal/broker"
	"market-service/internal/models"
	"market-service/internal/service"
	"market-service/internal/store"
	"market-service/internal/util"

	"go.uber.org/zap"
)

// ChatNotifier consumes deal events and posts the matching system message
// into the deal's chat. Chat delivery is asynchronous on purpose: a deal
// transition must not fail because the notification could not be written.
type ChatNotifier struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	chats        *service.ChatService
	logger       *zap.Logger
}

// NewChatNotifier creates a new chat notifier worker
func NewChatNotifier(consumer *broker.Consumer, st *store.Store, chats *service.ChatService) *ChatNotifier {
	w := &ChatNotifier{
		consumer: consumer,
		store:    st,
		chats:    chats,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnDealEvent(w.handleDealEvent)
	eventHandler.OnItemsImported(w.handleItemsImported)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ChatNotifier) Start(ctx context.Context) error {
	w.logger.Info("Starting chat notifier worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ChatNotifier) Stop() error {
	w.logger.Info("Stopping chat notifier worker")
	return w.consumer.Close()
}

// handleDealEvent posts one system message per event, exactly once. The
// processed_events table absorbs redeliveries after a consumer rebalance.
func (w *ChatNotifier) handleDealEvent(ctx context.Context, event *models.DealEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		w.logger.Debug("Skipping already processed event", zap.String("event_id", event.EventID))
		return nil
	}

	text := systemMessageFor(event)
	if text == "" {
		return nil
	}

	if err := w.chats.PostSystemMessage(ctx, event.DealID, event.BuyerID, event.SellerID, text); err != nil {
		return fmt.Errorf("failed to post system message: %w", err)
	}
	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *ChatNotifier) handleItemsImported(ctx context.Context, event *models.ItemsImportedEvent) error {
	w.logger.Info("Catalog import completed",
		zap.Int64("game_id", event.GameID),
		zap.Int64("seller_id", event.SellerID),
		zap.Int("created", event.CreatedCount),
		zap.Int("errors", event.ErrorCount))
	return nil
}

func systemMessageFor(event *models.DealEvent) string {
	switch event.EventType {
	case models.EventTypeDealCreated:
		return fmt.Sprintf("Сделка #%d создана. Средства покупателя заморожены: %d ₽.", event.DealID, event.Price)
	case models.EventTypeDealSellerConfirmed:
		return fmt.Sprintf("Продавец подтвердил передачу товара по сделке #%d.", event.DealID)
	case models.EventTypeDealCompleted:
		return fmt.Sprintf("Сделка #%d завершена. Средства переведены продавцу: %d ₽.", event.DealID, event.Price)
	case models.EventTypeDealDisputed:
		return fmt.Sprintf("По сделке #%d открыт спор. Средства заморожены до решения поддержки.", event.DealID)
	default:
		return ""
	}
}
