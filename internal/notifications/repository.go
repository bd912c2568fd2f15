package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"certshield/coi-backend/pkg/apperrors"
)

type Repository interface {
	Create(ctx context.Context, comm *Communication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Communication, error)
	Update(ctx context.Context, comm *Communication) error
	ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Communication, error)
	// LastSentAt returns the send time of the most recent communication that
	// actually went out for the assignment. Failed sends do not count, so
	// they never reset the escalation clock.
	LastSentAt(ctx context.Context, projectID, subcontractorID uuid.UUID) (*time.Time, error)
	// MaxStage returns the highest escalation stage attempted (non-failed)
	// for the verdict, and whether any stage exists at all.
	MaxStage(ctx context.Context, verificationID uuid.UUID) (int, bool, error)
	HasCriticalAlert(ctx context.Context, verificationID uuid.UUID) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, comm *Communication) error {
	return r.db.WithContext(ctx).Create(comm).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Communication, error) {
	var comm Communication
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&comm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "communication", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &comm, nil
}

func (r *gormRepository) Update(ctx context.Context, comm *Communication) error {
	return r.db.WithContext(ctx).Save(comm).Error
}

func (r *gormRepository) ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Communication, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var comms []Communication
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ?", projectID, subcontractorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&comms).Error
	return comms, err
}

func (r *gormRepository) LastSentAt(ctx context.Context, projectID, subcontractorID uuid.UUID) (*time.Time, error) {
	var comm Communication
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ? AND status <> ? AND sent_at IS NOT NULL",
			projectID, subcontractorID, StatusFailed).
		Order("sent_at DESC").
		First(&comm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comm.SentAt, nil
}

func (r *gormRepository) MaxStage(ctx context.Context, verificationID uuid.UUID) (int, bool, error) {
	var comm Communication
	err := r.db.WithContext(ctx).
		Where("verification_id = ? AND type IN ? AND status <> ? AND stage IS NOT NULL",
			verificationID, []CommType{TypeDeficiency, TypeFollowUp}, StatusFailed).
		Order("stage DESC").
		First(&comm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if comm.Stage == nil {
		return 0, false, nil
	}
	return *comm.Stage, true, nil
}

func (r *gormRepository) HasCriticalAlert(ctx context.Context, verificationID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Communication{}).
		Where("verification_id = ? AND type = ? AND status <> ?", verificationID, TypeCriticalAlert, StatusFailed).
		Count(&count).Error
	return count > 0, err
}
