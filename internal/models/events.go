package models

import "time"

// Event types
const (
	EventTypeDealCreated         = "DEAL_CREATED"
	EventTypeDealSellerConfirmed = "DEAL_SELLER_CONFIRMED"
	EventTypeDealCompleted       = "DEAL_COMPLETED"
	EventTypeDealDisputed        = "DEAL_DISPUTED"
	EventTypeItemsImported       = "ITEMS_IMPORTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DealEvent is published on every deal state transition. The chat-notifier
// worker consumes it to post the system message into the deal's chat.
type DealEvent struct {
	BaseEvent
	DealID   int64 `json:"deal_id"`
	ItemID   int64 `json:"item_id"`
	BuyerID  int64 `json:"buyer_id"`
	SellerID int64 `json:"seller_id"`
	Price    int64 `json:"price"`
}

// ItemsImportedEvent is published after a catalog import run completes.
type ItemsImportedEvent struct {
	BaseEvent
	GameID       int64 `json:"game_id"`
	SellerID     int64 `json:"seller_id"`
	TotalFound   int   `json:"total_found"`
	CreatedCount int   `json:"created_count"`
	ErrorCount   int   `json:"error_count"`
}
