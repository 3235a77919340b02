// Package resolve implements the auto-resolve batch that places unplaced
// students into groups, forms new groups from the leftover pool, and
// assigns topics to fully staffed groups. The resolver produces a plan;
// it never persists anything itself.
package resolve

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownSemesterError is the hard failure for a scope naming a semester
// that does not exist. The repository layer returns it from policy lookups.
type UnknownSemesterError struct {
	SemesterID uuid.UUID
}

func (e *UnknownSemesterError) Error() string {
	return fmt.Sprintf("unknown semester %s", e.SemesterID)
}

// MissingPolicyError is the hard failure for a semester that exists but has
// no group size policy configured. Auto-resolve cannot form groups without
// size bounds.
type MissingPolicyError struct {
	SemesterID uuid.UUID
}

func (e *MissingPolicyError) Error() string {
	return fmt.Sprintf("no group size policy configured for semester %s", e.SemesterID)
}

// LoadError wraps a batch-level repository read failure. Per-record
// failures downgrade to issues instead.
type LoadError struct {
	Resource string
	Cause    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
