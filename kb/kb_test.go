package kb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/translate"
)

func TestDefaultCoversGenerator(t *testing.T) {
	kb := Default()

	reg := registry.GetDefaultRegistry()
	names := append(reg.PrimitiveNames(), translate.ConstructiveNames()...)
	names = append(names, "free")
	require.NoError(t, kb.Validate(names...))

	n, ok := kb.Arity("on_aline")
	require.True(t, ok)
	assert.Equal(t, 6, n)

	assert.NotEmpty(t, kb.Rules())
	r, ok := kb.Rule("r00")
	require.True(t, ok)
	assert.Equal(t, "para A B E F", r.Conclusion)
	assert.Len(t, r.Premises, 3)
}

func TestParse(t *testing.T) {
	defs := `
on_line x a b
x : x a b
a b = diff a b
x : coll x a b
line a b


triangle a b c
a b c : a b c
`
	rules := "perp A B C D, perp C D E F => para A B E F\n\ncyclic A B P Q => eqangle P A P B Q A Q B\n"

	kb, err := Parse(strings.NewReader(defs), strings.NewReader(rules))
	require.NoError(t, err)

	assert.Equal(t, []string{"on_line", "triangle"}, kb.Names())
	d, ok := kb.Definition("on_line")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "a", "b"}, d.Args)
	assert.Len(t, d.Body, 4)

	require.Len(t, kb.Rules(), 2)
	assert.Equal(t, "r01", kb.Rules()[1].Name)
	assert.Equal(t, "cyclic A B P Q => eqangle P A P B Q A Q B", kb.Rules()[1].String())

	solve := kb.SolveRules()
	require.Len(t, solve, 2)
	assert.Equal(t, "r00", solve[0].Name)
	assert.Equal(t, "perp A B C D, perp C D E F => para A B E F", solve[0].Text)
}

func TestParseErrors(t *testing.T) {
	cases := map[string][2]string{
		"no definitions":     {"", "a => b"},
		"duplicate":          {"free a\n\nfree a\n", ""},
		"missing arrow":      {"free a\n", "perp A B C D"},
		"empty premise side": {"free a\n", " => para A B C D"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(c[0]), strings.NewReader(c[1]))
			assert.Error(t, err)
		})
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	err := Default().Validate("on_line", "zeta", "alpha", "zeta")
	require.ErrorIs(t, err, ErrUndefined)
	assert.Contains(t, err.Error(), "alpha, zeta")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs.txt")
	require.NoError(t, os.WriteFile(defs, []byte("free a\na :\n"), 0o644))

	kb, err := Load(defs, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"free"}, kb.Names())
	assert.NotEmpty(t, kb.Rules())

	_, err = Load(filepath.Join(dir, "missing.txt"), "")
	assert.Error(t, err)
}
