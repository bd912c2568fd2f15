package exceptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/pkg/apperrors"
)

// ResolutionSuperseded marks exceptions closed out automatically because a
// compliant verdict arrived for the assignment they covered.
const ResolutionSuperseded = "superseded_by_compliant_verdict"

// StatusRecomputer re-derives the assignment status after an exception
// transition takes or releases effect.
type StatusRecomputer interface {
	Recompute(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, actorID *uuid.UUID) (compliance.Status, error)
}

// AssignmentProvider locates (or lazily creates) the assignment an exception
// attaches to.
type AssignmentProvider interface {
	GetOrCreateAssignment(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID) (*compliance.Assignment, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Exception, error)
	Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID) (*Exception, error)
	Reject(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error)
	Resolve(ctx context.Context, id uuid.UUID, resolutionType, notes string, actorID uuid.UUID) (*Exception, error)
	Close(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error)
	Get(ctx context.Context, id uuid.UUID) (*Exception, error)
	List(ctx context.Context, companyID uuid.UUID, limit int) ([]Exception, error)

	// ResolveAllActive resolves every active exception for the assignment in
	// one operation; used when a compliant verdict supersedes them.
	ResolveAllActive(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, verificationID uuid.UUID) (int, error)

	// ExpireSweep transitions overdue active exceptions to expired. Safe to
	// run concurrently with itself and with user transitions: exceptions
	// that left the active state are skipped, not errored.
	ExpireSweep(ctx context.Context) (int, error)
}

// CreateRequest carries a new deviation. AutoApprove is honored only when
// the caller attests the actor holds an approval-capable role; role gating
// itself belongs to the transport layer.
type CreateRequest struct {
	CompanyID       uuid.UUID
	ProjectID       uuid.UUID
	SubcontractorID uuid.UUID
	VerificationID  *uuid.UUID
	IssueSummary    string
	Reason          string
	RiskLevel       RiskLevel
	ExpirationType  ExpirationType
	ExpiresAt       *time.Time
	AutoApprove     bool
	ActorID         uuid.UUID
	ActorCanApprove bool
}

type service struct {
	repo        Repository
	assignments AssignmentProvider
	recomputer  StatusRecomputer
	recorder    audit.Recorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(repo Repository, assignments AssignmentProvider, recomputer StatusRecomputer, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		repo:        repo,
		assignments: assignments,
		recomputer:  recomputer,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Exception, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	assignment, err := s.assignments.GetOrCreateAssignment(ctx, req.CompanyID, req.ProjectID, req.SubcontractorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	exception := &Exception{
		ID:              uuid.New(),
		CompanyID:       req.CompanyID,
		AssignmentID:    assignment.ID,
		ProjectID:       req.ProjectID,
		SubcontractorID: req.SubcontractorID,
		VerificationID:  req.VerificationID,
		IssueSummary:    req.IssueSummary,
		Reason:          req.Reason,
		RiskLevel:       req.RiskLevel,
		Status:          StatusPendingApproval,
		ExpirationType:  req.ExpirationType,
		ExpiresAt:       req.ExpiresAt,
		CreatedByUserID: req.ActorID,
	}

	if req.AutoApprove && req.ActorCanApprove {
		exception.Status = StatusActive
		exception.ApprovedByUserID = &req.ActorID
		exception.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, exception); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, exception.CompanyID, &req.ActorID, audit.EntityException, exception.ID.String(), "exception_created", map[string]any{
		"assignment_id": assignment.ID.String(),
		"risk_level":    string(exception.RiskLevel),
		"status":        string(exception.Status),
		"auto_approved": exception.Status == StatusActive,
	})

	if exception.Status == StatusActive {
		s.recomputeAfterTransition(ctx, exception, &req.ActorID)
	}

	return exception, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID) (*Exception, error) {
	if approverID == uuid.Nil {
		return nil, apperrors.NewValidation("approved_by_user_id", "is required")
	}

	exception, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Guard(string(exception.Status), string(StatusActive)); err != nil {
		return nil, err
	}

	now := s.now()
	exception.Status = StatusActive
	exception.ApprovedByUserID = &approverID
	exception.ApprovedAt = &now

	// The partial unique index still applies on update: approving while a
	// sibling exception is active surfaces as ConflictError.
	if err := s.repo.Update(ctx, exception); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, exception.CompanyID, &approverID, audit.EntityException, exception.ID.String(), "exception_approved", nil)
	s.recomputeAfterTransition(ctx, exception, &approverID)

	return exception, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error) {
	exception, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exception.Status != StatusPendingApproval {
		return nil, &apperrors.InvalidTransitionError{Entity: "exception", From: string(exception.Status), To: string(StatusClosed)}
	}

	now := s.now()
	exception.Status = StatusClosed
	exception.ClosedAt = &now

	if err := s.repo.Update(ctx, exception); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, exception.CompanyID, &actorID, audit.EntityException, exception.ID.String(), "exception_rejected", nil)
	return exception, nil
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID, resolutionType, notes string, actorID uuid.UUID) (*Exception, error) {
	if resolutionType == "" {
		return nil, apperrors.NewValidation("resolution_type", "is required")
	}

	exception, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Guard(string(exception.Status), string(StatusResolved)); err != nil {
		return nil, err
	}

	now := s.now()
	exception.Status = StatusResolved
	exception.ResolutionType = resolutionType
	exception.ResolutionNotes = notes
	exception.ResolvedAt = &now

	if err := s.repo.Update(ctx, exception); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, exception.CompanyID, &actorID, audit.EntityException, exception.ID.String(), "exception_resolved", map[string]any{
		"resolution_type": resolutionType,
	})
	s.recomputeAfterTransition(ctx, exception, &actorID)

	return exception, nil
}

func (s *service) Close(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error) {
	exception, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Guard(string(exception.Status), string(StatusClosed)); err != nil {
		return nil, err
	}

	wasActive := exception.Status == StatusActive
	now := s.now()
	exception.Status = StatusClosed
	exception.ClosedAt = &now

	if err := s.repo.Update(ctx, exception); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, exception.CompanyID, &actorID, audit.EntityException, exception.ID.String(), "exception_closed", nil)
	if wasActive {
		s.recomputeAfterTransition(ctx, exception, &actorID)
	}

	return exception, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Exception, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, companyID uuid.UUID, limit int) ([]Exception, error) {
	return s.repo.ListByCompany(ctx, companyID, limit)
}

func (s *service) ResolveAllActive(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, verificationID uuid.UUID) (int, error) {
	active, err := s.repo.ListActiveByAssignment(ctx, projectID, subcontractorID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	resolved := 0
	for _, exception := range active {
		ok, err := s.repo.TransitionFromActive(ctx, exception.ID, map[string]any{
			"status":          StatusResolved,
			"resolution_type": ResolutionSuperseded,
			"resolved_at":     now,
		})
		if err != nil {
			return resolved, err
		}
		if !ok {
			continue
		}
		resolved++
		s.recorder.Record(ctx, companyID, nil, audit.EntityException, exception.ID.String(), "exception_resolved", map[string]any{
			"resolution_type": ResolutionSuperseded,
			"verification_id": verificationID.String(),
		})
	}
	return resolved, nil
}

func (s *service) ExpireSweep(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.ListExpiredActive(ctx, now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, exception := range overdue {
		ok, err := s.repo.TransitionFromActive(ctx, exception.ID, map[string]any{
			"status": StatusExpired,
		})
		if err != nil {
			s.logger.Error("failed to expire exception",
				zap.String("exception_id", exception.ID.String()),
				zap.Error(err))
			continue
		}
		if !ok {
			// Resolved or closed since the list query; skip, not an error.
			continue
		}
		expired++

		s.recorder.Record(ctx, exception.CompanyID, nil, audit.EntityException, exception.ID.String(), "exception_expired", map[string]any{
			"expired_at": exception.ExpiresAt.Format(time.RFC3339),
		})
		s.recomputeAfterTransition(ctx, &exception, nil)
	}

	if expired > 0 {
		s.logger.Info("exception expiry sweep completed", zap.Int("expired", expired))
	}
	return expired, nil
}

func (s *service) recomputeAfterTransition(ctx context.Context, exception *Exception, actorID *uuid.UUID) {
	if _, err := s.recomputer.Recompute(ctx, exception.CompanyID, exception.ProjectID, exception.SubcontractorID, actorID); err != nil {
		s.logger.Error("failed to recompute assignment status after exception transition",
			zap.String("exception_id", exception.ID.String()),
			zap.Error(err))
	}
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.CompanyID == uuid.Nil:
		return apperrors.NewValidation("company_id", "is required")
	case req.ProjectID == uuid.Nil:
		return apperrors.NewValidation("project_id", "is required")
	case req.SubcontractorID == uuid.Nil:
		return apperrors.NewValidation("subcontractor_id", "is required")
	case req.ActorID == uuid.Nil:
		return apperrors.NewValidation("created_by_user_id", "is required")
	case req.IssueSummary == "":
		return apperrors.NewValidation("issue_summary", "is required")
	case req.Reason == "":
		return apperrors.NewValidation("reason", "is required")
	case !req.RiskLevel.Valid():
		return apperrors.NewValidation("risk_level", "must be low, medium or high")
	case !req.ExpirationType.Valid():
		return apperrors.NewValidation("expiration_type", "must be until_resolved, fixed_duration, specific_date or permanent")
	case req.ExpirationType.RequiresExpiry() && req.ExpiresAt == nil:
		return apperrors.NewValidation("expires_at", "is required for "+string(req.ExpirationType))
	case !req.ExpirationType.RequiresExpiry() && req.ExpiresAt != nil:
		return apperrors.NewValidation("expires_at", "must be empty for "+string(req.ExpirationType))
	}
	return nil
}
