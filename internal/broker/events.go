package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-service/internal/models"
	"market-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishDealEvent publishes one deal state transition. All events of a deal
// share a key so consumers see them in order.
func (ep *EventPublisher) PublishDealEvent(ctx context.Context, eventType string, deal *models.Deal, sellerID int64) error {
	event := &models.DealEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		DealID:   deal.ID,
		ItemID:   deal.ItemID,
		BuyerID:  deal.BuyerID,
		SellerID: sellerID,
		Price:    deal.Price,
	}
	key := fmt.Sprintf("deal-%d", deal.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishItemsImported publishes the summary of a finished import run.
func (ep *EventPublisher) PublishItemsImported(ctx context.Context, event *models.ItemsImportedEvent) error {
	event.BaseEvent = models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: models.EventTypeItemsImported,
		Timestamp: time.Now(),
	}
	key := fmt.Sprintf("import-%d-%d", event.GameID, event.SellerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onDealEvent     func(context.Context, *models.DealEvent) error
	onItemsImported func(context.Context, *models.ItemsImportedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDealEvent registers a handler for all deal transition events
func (eh *EventHandler) OnDealEvent(handler func(context.Context, *models.DealEvent) error) {
	eh.onDealEvent = handler
}

// OnItemsImported registers a handler for import summary events
func (eh *EventHandler) OnItemsImported(handler func(context.Context, *models.ItemsImportedEvent) error) {
	eh.onItemsImported = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeDealCreated,
		models.EventTypeDealSellerConfirmed,
		models.EventTypeDealCompleted,
		models.EventTypeDealDisputed:
		if eh.onDealEvent != nil {
			var event models.DealEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal deal event: %w", err)
			}
			return eh.onDealEvent(ctx, &event)
		}

	case models.EventTypeItemsImported:
		if eh.onItemsImported != nil {
			var event models.ItemsImportedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ItemsImported event: %w", err)
			}
			return eh.onItemsImported(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
