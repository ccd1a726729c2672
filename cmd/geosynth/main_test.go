package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/worker"
)

func TestSaveCatalogueKeepsOverrides(t *testing.T) {
	t.Setenv("GEOSYNTH_CONFIG", "")
	dir := t.TempDir()
	out := filepath.Join(dir, "effective.yaml")

	config := &worker.Config{
		CatalogPath:  filepath.Join(dir, "missing.yaml"),
		SolveTimeout: 7 * time.Second,
	}
	require.NoError(t, saveCatalogue(config, out))

	loaded, err := registry.NewLoader(out).LoadRegistry()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, loaded.Search.SolveTimeout)
	assert.Equal(t, registry.GetDefaultRegistry().PrimitiveNames(), loaded.PrimitiveNames())
}
