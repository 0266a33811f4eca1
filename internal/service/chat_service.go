package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"market-service/internal/apperr"
	"market-service/internal/models"
	"market-service/internal/store"
	"market-service/internal/util"

	"go.uber.org/zap"
)

// ChatService handles per-deal chats. System messages arrive asynchronously
// through the deal-event worker; user messages come in via the API.
type ChatService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(store *store.Store) *ChatService {
	return &ChatService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ListForUser returns the caller's chats with previews.
func (s *ChatService) ListForUser(ctx context.Context, userID int64) ([]models.ChatView, error) {
	return s.store.ListChatsForUser(ctx, userID)
}

// OpenForDeal returns the chat for a deal, creating it on first access.
// Only the deal's participants may open it.
func (s *ChatService) OpenForDeal(ctx context.Context, dealID, userID int64) (*models.Chat, error) {
	deal, err := s.store.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetItemByID(ctx, deal.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deal item: %w", err)
	}
	if deal.BuyerID != userID && item.SellerID != userID {
		return nil, apperr.Forbidden("not a participant of this deal")
	}
	return s.store.GetOrCreateChatForDeal(ctx, dealID, deal.BuyerID, item.SellerID)
}

// Messages returns a chat's history for a participant.
func (s *ChatService) Messages(ctx context.Context, chatID, userID int64) ([]models.ChatMessage, error) {
	chat, err := s.requireParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chat.ID)
}

// SendText posts a text message from a participant.
func (s *ChatService) SendText(ctx context.Context, chatID, userID int64, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message text is empty")
	}
	if _, err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ChatID:   chatID,
		SenderID: sql.NullInt64{Int64: userID, Valid: true},
		Type:     models.MessageTypeText,
		Text:     sql.NullString{String: text, Valid: true},
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendImage posts an image message from a participant. The image is already
// stored; imageURL is its public path.
func (s *ChatService) SendImage(ctx context.Context, chatID, userID int64, imageURL string) (*models.ChatMessage, error) {
	if imageURL == "" {
		return nil, apperr.Validation("image is required")
	}
	if _, err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ChatID:   chatID,
		SenderID: sql.NullInt64{Int64: userID, Valid: true},
		Type:     models.MessageTypeImage,
		ImageURL: sql.NullString{String: imageURL, Valid: true},
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// PostSystemMessage appends a sender-less notification to a deal's chat,
// creating the chat if it does not exist yet. Called by the deal-event
// worker.
func (s *ChatService) PostSystemMessage(ctx context.Context, dealID, buyerID, sellerID int64, text string) error {
	chat, err := s.store.GetOrCreateChatForDeal(ctx, dealID, buyerID, sellerID)
	if err != nil {
		return err
	}
	if err := s.store.AddSystemMessage(ctx, chat.ID, text); err != nil {
		return err
	}
	s.logger.Debug("System message posted",
		zap.Int64("deal_id", dealID),
		zap.Int64("chat_id", chat.ID))
	return nil
}

func (s *ChatService) requireParticipant(ctx context.Context, chatID, userID int64) (*models.Chat, error) {
	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.BuyerID != userID && chat.SellerID != userID {
		return nil, apperr.Forbidden("not a participant of this chat")
	}
	return chat, nil
}
