package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampHotLimit(t *testing.T) {
	assert.Equal(t, 0, clampHotLimit(0))
	assert.Equal(t, 0, clampHotLimit(-3))
	assert.Equal(t, 20, clampHotLimit(1))
	assert.Equal(t, 20, clampHotLimit(20))
	assert.Equal(t, 50, clampHotLimit(21))
	assert.Equal(t, 50, clampHotLimit(999))
}

// Every limit a request can carry must land on a tier that invalidateHotItems
// enumerates, otherwise a listing change could leave a stale cache entry
// behind for the TTL.
func TestClampHotLimitCoversInvalidation(t *testing.T) {
	for limit := -5; limit <= 100; limit++ {
		assert.Contains(t, hotItemsLimits, clampHotLimit(limit), "limit %d", limit)
	}
}
