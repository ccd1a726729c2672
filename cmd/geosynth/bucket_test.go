package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/geosynth/core"
)

func TestBucketFile(t *testing.T) {
	tests := []struct {
		length int
		want   string
	}{
		{0, ""},
		{4, ""},
		{5, "candidates_5.txt"},
		{7, "candidates_5.txt"},
		{8, "candidates_8.txt"},
		{30, "candidates_8.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketFile(tt.length), "length %d", tt.length)
	}
}

func TestAppendCandidate(t *testing.T) {
	dir := t.TempDir()

	path, err := appendCandidate(dir, core.Problem{Script: "A B C = triangle A B C", ProofLength: 2})
	require.NoError(t, err)
	assert.Empty(t, path)

	for _, s := range []string{"s1", "s2"} {
		path, err = appendCandidate(dir, core.Problem{Script: s, ProofLength: 9})
		require.NoError(t, err)
	}
	assert.Equal(t, filepath.Join(dir, "candidates_8.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s1\ns2\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "candidates_5.txt"))
}
