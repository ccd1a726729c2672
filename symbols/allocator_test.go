package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorCycles(t *testing.T) {
	a := New([]string{"A", "B"})
	assert.Equal(t, []string{"A", "B", "A2"}, a.Take(3))
	assert.Equal(t, []string{"B2", "A3", "B3"}, a.Take(3))
}

func TestAllocatorUnique(t *testing.T) {
	a := New(nil)
	seen := make(map[string]bool)
	for i := 0; i < 5*len(DefaultAlphabet); i++ {
		name := a.Next()
		assert.False(t, seen[name], "duplicate %s", name)
		seen[name] = true
	}
}

func TestAllocatorPeekAdvance(t *testing.T) {
	a := New([]string{"A", "B", "C"})

	t.Run("peek does not consume", func(t *testing.T) {
		assert.Equal(t, "A", a.Peek())
		assert.Equal(t, "A", a.Peek())
		assert.True(t, a.Holding())
		assert.Equal(t, 0, a.Issued())
	})

	t.Run("advance commits the held name", func(t *testing.T) {
		assert.Equal(t, "A", a.Advance())
		assert.False(t, a.Holding())
		assert.Equal(t, 1, a.Issued())
	})

	t.Run("advance without peek", func(t *testing.T) {
		assert.Equal(t, "B", a.Advance())
		assert.Equal(t, "C", a.Peek())
		assert.Equal(t, "C", a.Next())
		assert.Equal(t, "A2", a.Peek())
	})
}
