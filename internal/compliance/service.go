package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
)

// VerdictSource supplies the latest verdict for an assignment.
type VerdictSource interface {
	LatestOutcome(ctx context.Context, projectID, subcontractorID uuid.UUID) (*VerdictRef, error)
}

// ExceptionSource reports whether an active exception covers an assignment.
type ExceptionSource interface {
	HasActive(ctx context.Context, projectID, subcontractorID uuid.UUID) (bool, error)
}

type Service interface {
	// Recompute re-derives and persists the assignment status. Idempotent:
	// re-resolving with identical inputs writes nothing and records no audit
	// entry.
	Recompute(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, actorID *uuid.UUID) (Status, error)
	GetAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Assignment, error)
	ListAssignments(ctx context.Context, companyID uuid.UUID, statuses []Status) ([]Assignment, error)
	SetOnSiteDate(ctx context.Context, projectID, subcontractorID uuid.UUID, onSiteDate *time.Time, actorID uuid.UUID) error
}

type service struct {
	repo       Repository
	verdicts   VerdictSource
	exceptions ExceptionSource
	recorder   audit.Recorder
	logger     *zap.Logger
}

func NewService(repo Repository, verdicts VerdictSource, exceptions ExceptionSource, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		verdicts:   verdicts,
		exceptions: exceptions,
		recorder:   recorder,
		logger:     logger,
	}
}

func (s *service) Recompute(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, actorID *uuid.UUID) (Status, error) {
	assignment, err := s.repo.GetOrCreateAssignment(ctx, companyID, projectID, subcontractorID)
	if err != nil {
		return "", err
	}

	latest, err := s.verdicts.LatestOutcome(ctx, projectID, subcontractorID)
	if err != nil {
		return "", err
	}

	active, err := s.exceptions.HasActive(ctx, projectID, subcontractorID)
	if err != nil {
		return "", err
	}

	resolved := Resolve(latest, active)
	if resolved == assignment.Status {
		return resolved, nil
	}

	if err := s.repo.UpdateAssignmentStatus(ctx, assignment.ID, resolved); err != nil {
		return "", err
	}

	details := map[string]any{
		"previous_status":  string(assignment.Status),
		"new_status":       string(resolved),
		"active_exception": active,
	}
	if latest != nil {
		details["verdict_id"] = latest.ID.String()
		details["verdict_status"] = latest.Status
	}
	s.recorder.Record(ctx, companyID, actorID, audit.EntityAssignment, assignment.ID.String(), "status_resolved", details)

	s.logger.Info("assignment status resolved",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("previous", string(assignment.Status)),
		zap.String("resolved", string(resolved)))

	return resolved, nil
}

func (s *service) GetAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Assignment, error) {
	return s.repo.GetAssignment(ctx, projectID, subcontractorID)
}

func (s *service) ListAssignments(ctx context.Context, companyID uuid.UUID, statuses []Status) ([]Assignment, error) {
	if len(statuses) == 0 {
		return s.repo.ListAssignments(ctx, companyID)
	}
	return s.repo.ListAssignmentsByStatus(ctx, companyID, statuses)
}

func (s *service) SetOnSiteDate(ctx context.Context, projectID, subcontractorID uuid.UUID, onSiteDate *time.Time, actorID uuid.UUID) error {
	assignment, err := s.repo.GetAssignment(ctx, projectID, subcontractorID)
	if err != nil {
		return err
	}
	if err := s.repo.SetOnSiteDate(ctx, assignment.ID, onSiteDate); err != nil {
		return err
	}
	details := map[string]any{}
	if onSiteDate != nil {
		details["on_site_date"] = onSiteDate.Format(time.RFC3339)
	}
	s.recorder.Record(ctx, assignment.CompanyID, &actorID, audit.EntityAssignment, assignment.ID.String(), "on_site_date_set", details)
	return nil
}
