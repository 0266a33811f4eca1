package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentKey(t *testing.T) {
	assert.Equal(t, "item|7|42|dragon sword", CurrentKey(7, 42, "dragon sword"))
}

func TestAllVariants(t *testing.T) {
	keys := AllVariants(7, 42, "dragon sword")
	assert.Equal(t, []string{
		"item|7|42|dragon sword",
		"manual|7|42|dragon sword",
		"playerok|7|42|dragon sword",
	}, keys)
}

func TestBuildKeyScheme(t *testing.T) {
	assert.Equal(t, "manual|1|2|k", BuildKey(SchemeManual, 1, 2, "k"))
}
