package service

import (
	"context"
	"strings"
	"time"

	"market-service/internal/apperr"
	"market-service/internal/models"
	"market-service/internal/store"
	"market-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token verification.
type AuthService struct {
	store      *store.Store
	jwtSecret  []byte
	tokenTTL   time.Duration
	adminNicks map[string]bool
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, jwtSecret string, tokenTTL time.Duration, adminNicks []string) *AuthService {
	admins := make(map[string]bool, len(adminNicks))
	for _, n := range adminNicks {
		admins[strings.ToLower(n)] = true
	}
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		adminNicks: admins,
		logger:     util.GetLogger(),
	}
}

// AuthResponse carries the issued token and the user's public profile.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, nickname, password string) (*AuthResponse, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < 3 {
		return nil, apperr.Validation("nickname must be at least 3 characters")
	}
	if len(password) < 6 {
		return nil, apperr.Validation("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Nickname: nickname, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("nickname", nickname))
	return s.issueToken(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, nickname, password string) (*AuthResponse, error) {
	user, err := s.store.GetUserByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Forbidden("invalid nickname or password")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Forbidden("invalid nickname or password")
	}
	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"nic": user.Nickname,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// VerifyToken parses a bearer token and returns the user ID it names.
func (s *AuthService) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Forbidden("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, apperr.Forbidden("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperr.Forbidden("invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, apperr.Forbidden("invalid token subject")
	}
	return int64(sub), nil
}

// IsAdmin reports whether the nickname is in the admin allowlist.
func (s *AuthService) IsAdmin(nickname string) bool {
	return s.adminNicks[strings.ToLower(nickname)]
}

// GetUser loads a user's profile.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// SearchUsers finds users by nickname substring (admin panel).
func (s *AuthService) SearchUsers(ctx context.Context, q string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.SearchUsers(ctx, q, limit)
}
