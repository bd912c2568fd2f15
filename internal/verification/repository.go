package verification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"certshield/coi-backend/pkg/apperrors"
)

type Repository interface {
	Create(ctx context.Context, verdict *Verdict) error
	GetByID(ctx context.Context, id uuid.UUID) (*Verdict, error)
	Update(ctx context.Context, verdict *Verdict) error
	// Latest returns the most recent verdict for the assignment, or nil when
	// none exists. Ordering is verified_at, then created_at, then id, so the
	// winner is well-defined even when two verdicts land in the same instant.
	Latest(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Verdict, error)
	ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Verdict, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, verdict *Verdict) error {
	return r.db.WithContext(ctx).Create(verdict).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Verdict, error) {
	var verdict Verdict
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&verdict).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "verdict", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (r *gormRepository) Update(ctx context.Context, verdict *Verdict) error {
	return r.db.WithContext(ctx).Save(verdict).Error
}

func (r *gormRepository) Latest(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Verdict, error) {
	var verdict Verdict
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ?", projectID, subcontractorID).
		Order("verified_at DESC, created_at DESC, id DESC").
		First(&verdict).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (r *gormRepository) ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]Verdict, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var verdicts []Verdict
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ?", projectID, subcontractorID).
		Order("verified_at DESC, created_at DESC, id DESC").
		Limit(limit).
		Find(&verdicts).Error
	return verdicts, err
}
