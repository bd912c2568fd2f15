package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/pkg/apperrors"
)

// Service owns communication records: the provider delivery callback and the
// per-assignment history surface.
type Service interface {
	// ApplyDeliveryEvent applies a provider callback under the monotonic
	// upgrade rule. Out-of-order callbacks that would downgrade the status
	// are ignored, not errored.
	ApplyDeliveryEvent(ctx context.Context, communicationID uuid.UUID, newStatus CommStatus, timestamp time.Time) error
	ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Communication, error)
}

type service struct {
	repo     Repository
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewService(repo Repository, recorder audit.Recorder, logger *zap.Logger) Service {
	return &service{repo: repo, recorder: recorder, logger: logger}
}

func (s *service) ApplyDeliveryEvent(ctx context.Context, communicationID uuid.UUID, newStatus CommStatus, timestamp time.Time) error {
	if newStatus != StatusFailed {
		if _, ok := statusRank[newStatus]; !ok {
			return apperrors.NewValidation("status", "unknown delivery status")
		}
	}

	comm, err := s.repo.GetByID(ctx, communicationID)
	if err != nil {
		return err
	}

	if !CanUpgrade(comm.Status, newStatus) {
		s.logger.Debug("ignoring out-of-order delivery callback",
			zap.String("communication_id", communicationID.String()),
			zap.String("current", string(comm.Status)),
			zap.String("callback", string(newStatus)))
		return nil
	}

	comm.Status = newStatus
	switch newStatus {
	case StatusSent:
		comm.SentAt = &timestamp
	case StatusDelivered:
		comm.DeliveredAt = &timestamp
	case StatusOpened:
		comm.OpenedAt = &timestamp
		if comm.DeliveredAt == nil {
			// Opened implies delivered even when the delivered callback
			// never arrives.
			comm.DeliveredAt = &timestamp
		}
	}

	if err := s.repo.Update(ctx, comm); err != nil {
		return err
	}

	s.recorder.Record(ctx, comm.CompanyID, nil, audit.EntityCommunication, comm.ID.String(), "delivery_status_updated", map[string]any{
		"status": string(newStatus),
	})
	return nil
}

func (s *service) ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Communication, error) {
	return s.repo.ListByAssignment(ctx, projectID, subcontractorID, limit)
}
