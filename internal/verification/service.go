package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/pkg/apperrors"
)

// StatusRecomputer re-derives the assignment status after a verdict change.
type StatusRecomputer interface {
	Recompute(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, actorID *uuid.UUID) (compliance.Status, error)
}

// ExceptionResolver closes out active exceptions once a compliant verdict
// supersedes the issue they covered.
type ExceptionResolver interface {
	ResolveAllActive(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, verificationID uuid.UUID) (int, error)
}

// DeficiencyNotifier sends the immediate stage-0 deficiency communication for
// a failing verdict. Implemented by the escalation service.
type DeficiencyNotifier interface {
	NotifyDeficiency(ctx context.Context, verdict *Verdict) error
}

type Service interface {
	SubmitVerdict(ctx context.Context, req SubmitRequest) (*Verdict, error)
	OverrideVerdict(ctx context.Context, verificationID uuid.UUID, newStatus VerdictStatus, userID uuid.UUID) error
	GetVerdict(ctx context.Context, id uuid.UUID) (*Verdict, error)
	ListVerdicts(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Verdict, error)
}

// SubmitRequest is what the upstream extraction pipeline hands over: an
// opaque verdict plus confidence and structured deficiencies.
type SubmitRequest struct {
	CompanyID       uuid.UUID     `json:"company_id"`
	DocumentID      uuid.UUID     `json:"document_id"`
	ProjectID       uuid.UUID     `json:"project_id"`
	SubcontractorID uuid.UUID     `json:"subcontractor_id"`
	Status          VerdictStatus `json:"status"`
	ConfidenceScore float64       `json:"confidence_score"`
	Deficiencies    []Deficiency  `json:"deficiencies"`
}

type service struct {
	repo       Repository
	recomputer StatusRecomputer
	exceptions ExceptionResolver
	notifier   DeficiencyNotifier
	recorder   audit.Recorder
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(repo Repository, recomputer StatusRecomputer, exceptions ExceptionResolver, notifier DeficiencyNotifier, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		recomputer: recomputer,
		exceptions: exceptions,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *service) SubmitVerdict(ctx context.Context, req SubmitRequest) (*Verdict, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	deficiencies, err := EncodeDeficiencies(req.Deficiencies)
	if err != nil {
		return nil, apperrors.NewValidation("deficiencies", err.Error())
	}

	verdict := &Verdict{
		ID:              uuid.New(),
		CompanyID:       req.CompanyID,
		DocumentID:      req.DocumentID,
		ProjectID:       req.ProjectID,
		SubcontractorID: req.SubcontractorID,
		Status:          req.Status,
		ConfidenceScore: req.ConfidenceScore,
		DeficiencyData:  deficiencies,
		VerifiedAt:      s.now(),
	}

	if err := s.repo.Create(ctx, verdict); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, verdict.CompanyID, nil, audit.EntityVerdict, verdict.ID.String(), "verdict_submitted", map[string]any{
		"document_id": verdict.DocumentID.String(),
		"status":      string(verdict.Status),
		"confidence":  verdict.ConfidenceScore,
	})

	s.afterVerdictChange(ctx, verdict, nil)

	return verdict, nil
}

func (s *service) OverrideVerdict(ctx context.Context, verificationID uuid.UUID, newStatus VerdictStatus, userID uuid.UUID) error {
	if !newStatus.Valid() {
		return apperrors.NewValidation("status", "must be pass, fail or review")
	}
	if userID == uuid.Nil {
		return apperrors.NewValidation("user_id", "is required")
	}

	verdict, err := s.repo.GetByID(ctx, verificationID)
	if err != nil {
		return err
	}

	previous := verdict.Status
	verdict.Status = newStatus
	verdict.VerifiedByUserID = &userID
	verdict.VerifiedAt = s.now()

	if err := s.repo.Update(ctx, verdict); err != nil {
		return err
	}

	s.recorder.Record(ctx, verdict.CompanyID, &userID, audit.EntityVerdict, verdict.ID.String(), "verdict_overridden", map[string]any{
		"previous_status": string(previous),
		"new_status":      string(newStatus),
	})

	s.afterVerdictChange(ctx, verdict, &userID)

	return nil
}

// afterVerdictChange runs the resolver chain: a pass verdict resolves any
// active exception, the assignment status is recomputed, and a failing
// verdict that leaves the assignment out of compliance triggers the
// immediate stage-0 deficiency communication.
func (s *service) afterVerdictChange(ctx context.Context, verdict *Verdict, actorID *uuid.UUID) {
	if verdict.Status == VerdictPass {
		resolved, err := s.exceptions.ResolveAllActive(ctx, verdict.CompanyID, verdict.ProjectID, verdict.SubcontractorID, verdict.ID)
		if err != nil {
			s.logger.Error("failed to auto-resolve exceptions on compliant verdict",
				zap.String("verdict_id", verdict.ID.String()),
				zap.Error(err))
		} else if resolved > 0 {
			s.logger.Info("auto-resolved exceptions on compliant verdict",
				zap.String("verdict_id", verdict.ID.String()),
				zap.Int("resolved", resolved))
		}
	}

	status, err := s.recomputer.Recompute(ctx, verdict.CompanyID, verdict.ProjectID, verdict.SubcontractorID, actorID)
	if err != nil {
		s.logger.Error("failed to recompute assignment status",
			zap.String("verdict_id", verdict.ID.String()),
			zap.Error(err))
		return
	}

	if status == compliance.StatusNonCompliant || status == compliance.StatusPending {
		if err := s.notifier.NotifyDeficiency(ctx, verdict); err != nil {
			s.logger.Error("failed to send deficiency notification",
				zap.String("verdict_id", verdict.ID.String()),
				zap.Error(err))
		}
	}
}

func (s *service) GetVerdict(ctx context.Context, id uuid.UUID) (*Verdict, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListVerdicts(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Verdict, error) {
	return s.repo.ListByAssignment(ctx, projectID, subcontractorID, limit)
}

func validateSubmit(req SubmitRequest) error {
	switch {
	case req.CompanyID == uuid.Nil:
		return apperrors.NewValidation("company_id", "is required")
	case req.DocumentID == uuid.Nil:
		return apperrors.NewValidation("document_id", "is required")
	case req.ProjectID == uuid.Nil:
		return apperrors.NewValidation("project_id", "is required")
	case req.SubcontractorID == uuid.Nil:
		return apperrors.NewValidation("subcontractor_id", "is required")
	case !req.Status.Valid():
		return apperrors.NewValidation("status", "must be pass, fail or review")
	case req.ConfidenceScore < 0 || req.ConfidenceScore > 1:
		return apperrors.NewValidation("confidence_score", "must be between 0 and 1")
	}
	for i, d := range req.Deficiencies {
		if d.Type == "" {
			return apperrors.NewValidation("deficiencies", fmt.Sprintf("entry %d missing type", i))
		}
	}
	return nil
}
