package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewAuthService(nil, "test-secret", time.Hour, nil)

	resp, err := s.issueToken(&models.User{ID: 7, Nickname: "bob"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	userID, err := s.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, "secret-a", time.Hour, nil)
	verifier := NewAuthService(nil, "secret-b", time.Hour, nil)

	resp, err := issuer.issueToken(&models.User{ID: 7, Nickname: "bob"})
	require.NoError(t, err)

	_, err = verifier.VerifyToken(resp.Token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	s := NewAuthService(nil, "test-secret", -time.Minute, nil)

	resp, err := s.issueToken(&models.User{ID: 7, Nickname: "bob"})
	require.NoError(t, err)

	_, err = s.VerifyToken(resp.Token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	s := NewAuthService(nil, "test-secret", time.Hour, nil)
	_, err := s.VerifyToken("not-a-token")
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	s := NewAuthService(nil, "test-secret", time.Hour, []string{"Admin", "root"})

	assert.True(t, s.IsAdmin("admin"))
	assert.True(t, s.IsAdmin("ADMIN"))
	assert.True(t, s.IsAdmin("root"))
	assert.False(t, s.IsAdmin("bob"))
}
