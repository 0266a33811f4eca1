package store

import (
	"context"
	"database/sql"
	"errors"

	"market-service/internal/apperr"
	"market-service/internal/models"
)

// ListGames returns the full catalog of games.
func (s *Store) ListGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	err := s.db.SelectContext(ctx, &games, "SELECT * FROM games ORDER BY id")
	return games, err
}

// GetGameByID retrieves a game by ID
func (s *Store) GetGameByID(ctx context.Context, id int64) (*models.Game, error) {
	var game models.Game
	err := s.db.GetContext(ctx, &game, "SELECT * FROM games WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("game not found")
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// CreateGame inserts a catalog category.
func (s *Store) CreateGame(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (name, category, banner_url)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.db.GetContext(ctx, game, query, game.Name, game.Category, game.BannerURL)
}
