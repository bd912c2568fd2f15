package verification

import (
	"context"

	"github.com/google/uuid"

	"certshield/coi-backend/internal/compliance"
)

// OutcomeSource adapts the verdict repository to the resolver's narrow
// read contract.
type OutcomeSource struct {
	repo Repository
}

func NewOutcomeSource(repo Repository) *OutcomeSource {
	return &OutcomeSource{repo: repo}
}

func (s *OutcomeSource) LatestOutcome(ctx context.Context, projectID, subcontractorID uuid.UUID) (*compliance.VerdictRef, error) {
	verdict, err := s.repo.Latest(ctx, projectID, subcontractorID)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, nil
	}
	return &compliance.VerdictRef{ID: verdict.ID, Status: string(verdict.Status)}, nil
}
