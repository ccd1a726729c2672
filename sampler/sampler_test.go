package sampler

import (
	"math/rand"
	"testing"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSampler(t *testing.T, seed int64) *Sampler {
	t.Helper()
	s, err := New(registry.GetDefaultRegistry(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return s
}

func TestUniqueChoices(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("distinct", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got, err := UniqueChoices(rng, []string{"A", "B", "C", "D"}, nil, 3)
			require.NoError(t, err)
			seen := map[string]bool{}
			for _, g := range got {
				assert.False(t, seen[g])
				seen[g] = true
			}
		}
	})

	t.Run("too few candidates", func(t *testing.T) {
		_, err := UniqueChoices(rng, []string{"A"}, nil, 2)
		assert.ErrorIs(t, err, core.ErrInsufficientPoints)
	})

	t.Run("zero weights are never drawn", func(t *testing.T) {
		got, err := UniqueChoices(rng, []string{"A", "B", "C"}, []float64{0, 1, 1}, 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"B", "C"}, got)

		_, err = UniqueChoices(rng, []string{"A", "B"}, []float64{0, 1}, 2)
		assert.ErrorIs(t, err, core.ErrInsufficientPoints)
	})

	t.Run("empty draw", func(t *testing.T) {
		got, err := UniqueChoices(rng, []string{}, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestWeightedIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1, WeightedIndex(rng, []float64{0, 2, 0}, 3))
	}
	assert.Equal(t, -1, WeightedIndex(rng, []float64{0, 0}, 2))
	assert.Equal(t, -1, WeightedIndex(rng, nil, 0))
	assert.Len(t, Choices(rng, []float64{1, 1}, 5), 5)
}

func TestBuild(t *testing.T) {
	s := newSampler(t, 3)

	t.Run("coll needs two distinct points", func(t *testing.T) {
		_, ok, err := s.Build("coll", "E", []string{"A"})
		require.NoError(t, err)
		assert.False(t, ok)

		p, ok, err := s.Build("coll", "E", []string{"A", "B"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "on_line", p.Name)
		assert.ElementsMatch(t, []string{"E", "A", "B"}, p.Args)
	})

	t.Run("perp halves", func(t *testing.T) {
		_, ok, err := s.Build("perp", "E", []string{"A"})
		require.NoError(t, err)
		assert.False(t, ok)

		p, ok, err := s.Build("perp", "E", []string{"A", "B"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, []string{"on_tline", "on_dia"}, p.Name)
		assert.Equal(t, "E", p.Args[0])
	})

	t.Run("cyclic is never generated", func(t *testing.T) {
		_, ok, err := s.Build("cyclic", "E", []string{"A", "B", "C", "D"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown family", func(t *testing.T) {
		_, _, err := s.Build("midp", "E", []string{"A", "B"})
		assert.ErrorIs(t, err, core.ErrUnsupportedFamily)
	})
}

func TestSample(t *testing.T) {
	pool := []string{"A", "B", "C", "D"}

	t.Run("predicates only mention the point and the pool", func(t *testing.T) {
		s := newSampler(t, 11)
		allowed := map[string]bool{"E": true}
		for _, p := range pool {
			allowed[p] = true
		}
		for i := 0; i < 200; i++ {
			preds, err := s.Sample("E", pool)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(preds), 2)
			for _, p := range preds {
				assert.Contains(t, p.Args, "E")
				for _, a := range p.Args {
					assert.True(t, allowed[a], "foreign arg %s in %s", a, p)
				}
			}
		}
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		a, b := newSampler(t, 42), newSampler(t, 42)
		for i := 0; i < 50; i++ {
			pa, err := a.Sample("E", pool)
			require.NoError(t, err)
			pb, err := b.Sample("E", pool)
			require.NoError(t, err)
			assert.Equal(t, pa, pb)
		}
	})

	t.Run("empty pool yields nothing", func(t *testing.T) {
		s := newSampler(t, 5)
		for i := 0; i < 20; i++ {
			c, ok, err := s.Clause("E", nil)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, c.Preds)
		}
	})
}
