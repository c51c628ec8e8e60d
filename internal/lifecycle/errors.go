package lifecycle

import (
	"errors"
	"strings"
)

var (
	// ErrConfirmationRequired is returned when a mode switch would delete
	// existing phases and the caller has not confirmed it.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrNoTemplate is returned by operations that need an active recurring
	// template when the project has none.
	ErrNoTemplate = errors.New("project has no recurring template")
	// ErrAlreadySplit is returned when splitting a project that already has
	// split phases.
	ErrAlreadySplit = errors.New("project is already split into phases")
)

// ValidationError carries user-facing problems found before any write.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func invalid(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
