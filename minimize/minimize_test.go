package minimize

import (
	"testing"

	"github.com/snow-ghost/geosynth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, txt string) core.Script {
	t.Helper()
	s, err := core.ParseScript(txt)
	require.NoError(t, err)
	return s
}

func TestDeleteAuxAndDeps(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		toDelete []string
		want     string
	}{
		{
			name:     "dependent point becomes free",
			script:   "A B C D = isquare A B C D; E = on_line E A B; F = on_line F C E",
			toDelete: []string{"E"},
			want:     "A B C D = isquare A B C D; F = free F",
		},
		{
			name:     "other predicates survive",
			script:   "A B C D = isquare A B C D; E = eqdistance E D C B, on_line E D A; M = on_aline M B E C B A, on_line M A C",
			toDelete: []string{"E"},
			want:     "A B C D = isquare A B C D; M = on_line M A C",
		},
		{
			name:     "nothing to delete",
			script:   "A B C = triangle A B C; D = on_line D A B",
			toDelete: nil,
			want:     "A B C = triangle A B C; D = on_line D A B",
		},
		{
			name:     "base is never pruned",
			script:   "A B C = triangle A B C; D = on_line D A B",
			toDelete: []string{"A"},
			want:     "A B C = triangle A B C; D = free D",
		},
		{
			name:     "goal mentioning a deleted point is dropped",
			script:   "A B C = triangle A B C; D = on_line D A B; E = on_tline E C A B ? perp E C A B",
			toDelete: []string{"E"},
			want:     "A B C = triangle A B C; D = on_line D A B",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeleteAuxAndDeps(parse(t, tt.script), NewSet(tt.toDelete...))
			assert.Equal(t, tt.want, got.String())
			assert.NoError(t, got.Validate())
		})
	}
}

func TestDeleteDoesNotMutateInput(t *testing.T) {
	s := parse(t, "A B C = triangle A B C; D = on_line D A B; E = on_line E D C")
	before := s.String()
	_ = DeleteAuxAndDeps(s, NewSet("D"))
	assert.Equal(t, before, s.String())
}

func TestKeepSet(t *testing.T) {
	s := parse(t, "A B C = triangle A B C; D = on_line D A B; E = on_circle E A B; F = on_tline F C A B")
	trace := core.ProofTrace{
		Setup: []core.Construction{{Points: []string{"A", "B", "C"}}},
		Aux: []core.Construction{{
			Points:   []string{"F"},
			Premises: []core.Fact{{Name: "aconst", Args: []string{"F", "C", "A", "B", "1pi/2"}}},
		}},
	}
	keep := KeepSet(s, trace)
	assert.Equal(t, NewSet("A", "B", "C", "F"), keep)

	withGoal := s.WithGoal(core.Predicate{Name: "cong", Args: []string{"D", "A", "D", "B"}})
	assert.True(t, KeepSet(withGoal, trace)["D"])
}

func TestMinimize(t *testing.T) {
	s := parse(t, "A B C = triangle A B C; D = on_line D A B; E = on_circle E A D; F = on_tline F C A B, on_line F D E; G = on_line G A C")
	keep := NewSet("A", "B", "C", "D", "F")

	got := Minimize(s, keep)
	require.NoError(t, got.Validate())
	assert.Equal(t, "A B C = triangle A B C; D = on_line D A B; F = on_tline F C A B", got.String())

	t.Run("kept points keep predicates that reference no deleted point", func(t *testing.T) {
		for _, c := range got.Clauses[got.Base:] {
			for _, p := range c.Points {
				assert.True(t, keep[p])
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, got.String(), Minimize(got, keep).String())
	})
}
