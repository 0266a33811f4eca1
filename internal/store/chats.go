package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"market-service/internal/apperr"
	"market-service/internal/models"
)

// GetOrCreateChatForDeal returns the deal's chat, creating it on first use.
// The deal_id unique constraint plus ON CONFLICT makes concurrent first
// messages converge on one chat row.
func (s *Store) GetOrCreateChatForDeal(ctx context.Context, dealID, buyerID, sellerID int64) (*models.Chat, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (deal_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (deal_id) DO NOTHING`,
		dealID, buyerID, sellerID); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	var chat models.Chat
	if err := s.db.GetContext(ctx, &chat,
		"SELECT * FROM chats WHERE deal_id = $1", dealID); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatByID retrieves a chat by ID
func (s *Store) GetChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.GetContext(ctx, &chat, "SELECT * FROM chats WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// AddSystemMessage appends a sender-less system message to the chat.
func (s *Store) AddSystemMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (chat_id, type, text) VALUES ($1, $2, $3)",
		chatID, models.MessageTypeSystem, text)
	return err
}

// AddMessage appends a user message (text or image) and returns the stored
// row.
func (s *Store) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (chat_id, sender_id, type, text, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, msg, query,
		msg.ChatID, msg.SenderID, msg.Type, msg.Text, msg.ImageURL)
}

// ListMessages returns the chat's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.SelectContext(ctx, &msgs,
		"SELECT * FROM chat_messages WHERE chat_id = $1 ORDER BY created_at, id", chatID)
	return msgs, err
}

// ListChatsForUser returns the user's chats with the deal's item, the other
// participant, and the newest message for preview.
func (s *Store) ListChatsForUser(ctx context.Context, userID int64) ([]models.ChatView, error) {
	query := `
		SELECT
			c.id, c.deal_id,
			i.name AS item_name,
			partner.nickname AS partner_nickname,
			partner.avatar_url AS partner_avatar,
			lm.text AS last_message,
			lm.created_at AS last_time
		FROM chats c
		JOIN deals d ON c.deal_id = d.id
		JOIN items i ON d.item_id = i.id
		JOIN users partner ON partner.id = CASE
			WHEN c.buyer_id = $1 THEN c.seller_id ELSE c.buyer_id
		END
		LEFT JOIN LATERAL (
			SELECT text, created_at FROM chat_messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC`

	var chats []models.ChatView
	err := s.db.SelectContext(ctx, &chats, query, userID)
	return chats, err
}
