package compliance

import "github.com/google/uuid"

// VerdictRef is the slice of a verification verdict the resolver needs.
type VerdictRef struct {
	ID     uuid.UUID
	Status string
}

const (
	verdictPass   = "pass"
	verdictFail   = "fail"
	verdictReview = "review"
)

// Resolve derives the assignment status from the latest verdict and whether
// an active exception exists. Pure function; priority order is fixed:
// an active exception wins outright, then no-verdict, then the verdict.
func Resolve(latest *VerdictRef, activeException bool) Status {
	if activeException {
		return StatusException
	}
	if latest == nil {
		return StatusPending
	}
	switch latest.Status {
	case verdictPass:
		return StatusCompliant
	case verdictReview:
		return StatusPending
	case verdictFail:
		return StatusNonCompliant
	default:
		// Unknown verdict outcomes park the assignment rather than clear it.
		return StatusPending
	}
}
