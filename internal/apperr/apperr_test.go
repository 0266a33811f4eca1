package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InsufficientFunds("no money")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("nope")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("taken")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(New(KindUpstreamFetch, "upstream down")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	inner := Conflict("item is not available")
	wrapped := fmt.Errorf("buy failed: %w", inner)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "no money", UserMessage(InsufficientFunds("no money")))
	assert.Equal(t, "internal server error", UserMessage(errors.New("pq: deadlock detected")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUpstreamFetch, "network error reaching marketplace", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
