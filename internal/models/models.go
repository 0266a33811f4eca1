package models

import (
	"database/sql"
	"time"
)

// User holds the ledger-relevant account fields. Balance and Frozen are in
// the smallest currency unit; their sum changes only by the signed total of
// operations applied to the user and neither column may go negative.
type User struct {
	ID           int64          `db:"id" json:"id"`
	Nickname     string         `db:"nickname" json:"nickname"`
	PasswordHash string         `db:"password_hash" json:"-"`
	AvatarURL    sql.NullString `db:"avatar_url" json:"avatar_url,omitempty"`
	Balance      int64          `db:"balance" json:"balance"`
	Frozen       int64          `db:"frozen" json:"frozen_balance"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Game is a catalog category.
type Game struct {
	ID        int64          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Category  string         `db:"category" json:"category"`
	BannerURL sql.NullString `db:"banner_url" json:"banner_url,omitempty"`
}

// Item is a catalog listing. Status is mutated only by the deal flow;
// imports insert, they never update.
type Item struct {
	ID        int64     `db:"id" json:"id"`
	GameID    int64     `db:"game_id" json:"game_id"`
	SellerID  int64     `db:"seller_id" json:"seller_id"`
	Name      string    `db:"name" json:"name"`
	Descr     string    `db:"descr" json:"desc"`
	Price     int64     `db:"price" json:"price"`
	PhotoURL  string    `db:"photo_url" json:"photo_url"`
	Status    string    `db:"status" json:"status"`
	DedupKey  string    `db:"dedup_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Deal is one purchase of one item. Price is copied from the item at buy
// time and never changes afterwards; the buyer's frozen amount for this deal
// always equals it.
type Deal struct {
	ID        int64     `db:"id" json:"id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	BuyerID   int64     `db:"buyer_id" json:"buyer_id"`
	Price     int64     `db:"price" json:"price"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Operation is an append-only ledger audit record.
type Operation struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Amount    int64     `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Chat is the per-deal coordination channel.
type Chat struct {
	ID        int64     `db:"id" json:"id"`
	DealID    int64     `db:"deal_id" json:"deal_id"`
	BuyerID   int64     `db:"buyer_id" json:"buyer_id"`
	SellerID  int64     `db:"seller_id" json:"seller_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage is a single chat entry. SenderID is NULL for system messages.
type ChatMessage struct {
	ID        int64          `db:"id" json:"id"`
	ChatID    int64          `db:"chat_id" json:"chat_id"`
	SenderID  sql.NullInt64  `db:"sender_id" json:"sender_id,omitempty"`
	Type      string         `db:"type" json:"type"`
	Text      sql.NullString `db:"text" json:"text,omitempty"`
	ImageURL  sql.NullString `db:"image_url" json:"image_url,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Item statuses
const (
	ItemStatusActive   = "active"
	ItemStatusReserved = "reserved"
	ItemStatusSold     = "sold"
)

// Deal statuses
const (
	DealStatusPending         = "pending"
	DealStatusSellerConfirmed = "seller_confirmed"
	DealStatusCompleted       = "completed"
	DealStatusDispute         = "dispute"
)

// Operation types
const (
	OpTypeTopup       = "topup"
	OpTypeWithdraw    = "withdraw"
	OpTypeAdminCredit = "admin_credit"
	OpTypeAdminDebit  = "admin_debit"
	OpTypeDealFreeze  = "deal_freeze"
	OpTypeDealRelease = "deal_release"
)

// Operation statuses
const (
	OpStatusPending   = "pending"
	OpStatusCompleted = "completed"
)

// Chat message types
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
	MessageTypeImage  = "image"
)

// DealView is a deal joined with item and participants, plus the caller's
// role in it.
type DealView struct {
	Deal
	ItemName       string `db:"item_name" json:"item_name"`
	ItemPhoto      string `db:"item_photo" json:"item_photo"`
	SellerID       int64  `db:"seller_id" json:"seller_id"`
	SellerNickname string `db:"seller_nickname" json:"seller_nickname"`
	BuyerNickname  string `db:"buyer_nickname" json:"buyer_nickname"`
	Role           string `db:"role" json:"role"`
}

// ChatView is a chat joined with deal, item and partner info for the list
// endpoint.
type ChatView struct {
	ID              int64          `db:"id" json:"id"`
	DealID          int64          `db:"deal_id" json:"deal_id"`
	ItemName        string         `db:"item_name" json:"item_name"`
	PartnerNickname string         `db:"partner_nickname" json:"partner_nickname"`
	PartnerAvatar   sql.NullString `db:"partner_avatar" json:"partner_avatar,omitempty"`
	LastMessage     sql.NullString `db:"last_message" json:"last_message,omitempty"`
	LastTime        sql.NullTime   `db:"last_time" json:"last_time,omitempty"`
}
