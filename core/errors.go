package core

import (
	"errors"
	"fmt"
)

var (
	// Translation contract violations. These indicate a caller bug.
	ErrUnsupportedFamily = errors.New("unsupported predicate family")
	ErrBadArity          = errors.New("wrong number of arguments")
	ErrPointNotInArgs    = errors.New("new point does not occur in arguments")

	// ErrInsufficientPoints is returned when a draw cannot satisfy distinctness.
	ErrInsufficientPoints = errors.New("not enough distinct points to choose from")

	ErrMalformedScript = errors.New("malformed script")
	ErrSolveFailed     = errors.New("solve failed")
	ErrNoGoal          = errors.New("reasoner produced no goal")
	ErrSearchExhausted = errors.New("search exhausted without a solvable candidate")
)

// BuildError reports that the model builder rejected a script, typically
// because the configuration is inconsistent or degenerate.
type BuildError struct {
	Script string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %q: %v", e.Script, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// NewBuildError wraps cause as a build rejection of script.
func NewBuildError(script string, cause error) *BuildError {
	return &BuildError{Script: script, Err: cause}
}

// IsBuildError reports whether err is, or wraps, a *BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
