package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"market-service/internal/models"
)

func TestSystemMessageFor(t *testing.T) {
	event := &models.DealEvent{DealID: 42, Price: 1500}

	for _, typ := range []string{
		models.EventTypeDealCreated,
		models.EventTypeDealSellerConfirmed,
		models.EventTypeDealCompleted,
		models.EventTypeDealDisputed,
	} {
		event.EventType = typ
		msg := systemMessageFor(event)
		assert.NotEmpty(t, msg, "event type %s", typ)
		assert.Contains(t, msg, "#42")
	}

	event.EventType = models.EventTypeDealCreated
	assert.Contains(t, systemMessageFor(event), "1500 ₽")

	event.EventType = "UNKNOWN"
	assert.Empty(t, systemMessageFor(event))
}
