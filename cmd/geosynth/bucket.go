package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/snow-ghost/geosynth/core"
)

// bucketFile names the candidates file for a proof length: proofs of 5..7
// steps go to candidates_5.txt, 8 and longer to candidates_8.txt. Shorter
// proofs are not bucketed.
func bucketFile(proofLength int) string {
	switch {
	case proofLength >= 8:
		return "candidates_8.txt"
	case proofLength >= 5:
		return "candidates_5.txt"
	}
	return ""
}

// appendCandidate appends the problem's script to its bucket in dir and
// returns the file written, if any.
func appendCandidate(dir string, p core.Problem) (string, error) {
	name := bucketFile(p.ProofLength)
	if name == "" {
		return "", nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, p.Script); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
