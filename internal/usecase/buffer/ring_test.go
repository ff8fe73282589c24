package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_Append(t *testing.T) {
	t.Run("fills up to capacity", func(t *testing.T) {
		ring := NewRing[int](3)

		ring.Append(1)
		ring.Append(2)

		assert.Equal(t, 2, ring.Len())
		assert.Equal(t, 3, ring.Cap())
		assert.Equal(t, []int{1, 2}, ring.Items())
	})

	t.Run("evicts oldest first when full", func(t *testing.T) {
		ring := NewRing[int](3)
		for i := 1; i <= 5; i++ {
			ring.Append(i)
		}

		assert.Equal(t, 3, ring.Len())
		assert.Equal(t, []int{3, 4, 5}, ring.Items())
	})

	t.Run("first and last track the window", func(t *testing.T) {
		ring := NewRing[int](2)
		ring.Append(10)
		ring.Append(20)
		ring.Append(30)

		first, ok := ring.First()
		require.True(t, ok)
		assert.Equal(t, 20, first)

		last, ok := ring.Last()
		require.True(t, ok)
		assert.Equal(t, 30, last)
	})

	t.Run("empty ring has no first or last", func(t *testing.T) {
		ring := NewRing[int](2)

		_, ok := ring.First()
		assert.False(t, ok)
		_, ok = ring.Last()
		assert.False(t, ok)
		assert.Empty(t, ring.Items())
	})
}
