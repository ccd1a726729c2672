package builder

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/sampler"
	"github.com/snow-ghost/geosynth/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectingBuilder refuses any script mentioning one of the listed predicates.
type rejectingBuilder struct {
	reject []string
	calls  int
}

func (r *rejectingBuilder) Build(ctx context.Context, s core.Script) (core.Model, error) {
	r.calls++
	txt := s.String()
	for _, name := range r.reject {
		if strings.Contains(txt, name+" ") {
			return nil, core.NewBuildError(txt, errors.New("degenerate"))
		}
	}
	return txt, nil
}

func newBuilder(t *testing.T, models core.ModelBuilder, seed int64) (*Builder, *symbols.Allocator) {
	t.Helper()
	s, err := sampler.New(registry.GetDefaultRegistry(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	alloc := symbols.New(nil)
	b := New(models, s, alloc)
	base, err := registry.GetDefaultRegistry().FindPrimitive("triangle").Expand(alloc.Take(3))
	require.NoError(t, err)
	require.NoError(t, b.Start(base))
	return b, alloc
}

func clause(t *testing.T, txt string) core.Clause {
	t.Helper()
	c, err := core.ParseClause(txt)
	require.NoError(t, err)
	return c
}

func TestTryAppend(t *testing.T) {
	ctx := context.Background()
	models := &rejectingBuilder{reject: []string{"on_circle"}}
	b, _ := newBuilder(t, models, 1)

	t.Run("accepted clause is committed", func(t *testing.T) {
		ok, err := b.TryAppend(ctx, clause(t, "D = on_line D A B"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"A", "B", "C", "D"}, b.Pool())
		assert.Equal(t, "A B C = triangle A B C; D = on_line D A B", b.Script().String())
		assert.NotNil(t, b.Model())
	})

	t.Run("build failure leaves state unchanged", func(t *testing.T) {
		ok, err := b.TryAppend(ctx, clause(t, "E = on_circle E A B"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"A", "B", "C", "D"}, b.Pool())
		assert.Len(t, b.Script().Clauses, 2)
	})

	t.Run("malformed clause is an error", func(t *testing.T) {
		_, err := b.TryAppend(ctx, clause(t, "E = on_line E A Q"))
		assert.ErrorIs(t, err, core.ErrMalformedScript)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := b.TryAppend(cctx, clause(t, "E = on_circle E A B"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStepConsumesNamesOnlyOnAcceptance(t *testing.T) {
	ctx := context.Background()

	t.Run("rejecting everything keeps the name held", func(t *testing.T) {
		models := &rejectingBuilder{reject: []string{"on_line", "on_tline", "on_dia", "on_pline", "on_bline", "on_circle", "eqdistance", "on_aline", "eqangle3", "angle_bisector"}}
		b, alloc := newBuilder(t, models, 2)
		for i := 0; i < 10; i++ {
			out, err := b.Step(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, Accepted, out)
		}
		assert.Equal(t, "D", alloc.Peek())
		assert.Equal(t, 3, alloc.Issued())
		assert.Len(t, b.Pool(), 3)
	})

	t.Run("accepting builder grows a well-formed script", func(t *testing.T) {
		b, alloc := newBuilder(t, &rejectingBuilder{}, 3)
		accepted := 0
		for i := 0; i < 40; i++ {
			out, err := b.Step(ctx)
			require.NoError(t, err)
			if out == Accepted {
				accepted++
			}
		}
		s := b.Script()
		require.NoError(t, s.Validate())
		assert.Equal(t, accepted+1, len(s.Clauses))
		assert.Equal(t, 3+accepted, alloc.Issued())
		assert.Equal(t, s.Points(), b.Pool())
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "build_failed", BuildFailed.String())
	assert.Equal(t, "no_predicates", NoPredicates.String())
}
