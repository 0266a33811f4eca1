package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"market-service/internal/models"
)

func transitionRouter(h *Handler, fn func(ctx context.Context, dealID, userID int64) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/deals/:id/transition", func(c *gin.Context) {
		c.Set(userContextKey, &models.User{ID: 1, Nickname: "buyer"})
		h.dealTransition(c, fn)
	})
	return router
}

func TestDealTransitionResponseBody(t *testing.T) {
	h := &Handler{}
	router := transitionRouter(h, func(ctx context.Context, dealID, userID int64) error {
		return nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deals/7/transition", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestDealTransitionRejectsBadID(t *testing.T) {
	h := &Handler{}
	called := false
	router := transitionRouter(h, func(ctx context.Context, dealID, userID int64) error {
		called = true
		return nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deals/abc/transition", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
	assert.Contains(t, w.Body.String(), "error")
}
