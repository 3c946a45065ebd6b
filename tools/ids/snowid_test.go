package ids

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	seen := make(map[int64]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := Generate()
		assert.Positive(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		next := Generate()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestGenerateString(t *testing.T) {
	s := GenerateString()
	id, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	assert.Positive(t, id)
}
