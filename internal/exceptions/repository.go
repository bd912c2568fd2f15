package exceptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"certshield/coi-backend/pkg/apperrors"
)

type Repository interface {
	// Create inserts the exception. When the row is born active, the partial
	// unique index makes check-and-create atomic: a concurrent second active
	// exception surfaces as ConflictError.
	Create(ctx context.Context, exception *Exception) error
	GetByID(ctx context.Context, id uuid.UUID) (*Exception, error)
	Update(ctx context.Context, exception *Exception) error
	// TransitionFromActive applies updates only while the row is still
	// active. Returns false without error when another writer got there
	// first; sweeps use this to stay idempotent under concurrency.
	TransitionFromActive(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	ListActiveByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) ([]Exception, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]Exception, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]Exception, error)
	HasActive(ctx context.Context, projectID, subcontractorID uuid.UUID) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// translateDuplicate maps a violation of the single-active-exception index to
// the conflict error the transport layer turns into a 409. Relies on the
// connection being opened with TranslateError so driver duplicate-key errors
// surface as gorm.ErrDuplicatedKey.
func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &apperrors.ConflictError{
			Resource: "exception",
			Message:  "an active exception already exists for this assignment",
		}
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, exception *Exception) error {
	return translateDuplicate(r.db.WithContext(ctx).Create(exception).Error)
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Exception, error) {
	var exception Exception
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exception).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "exception", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &exception, nil
}

func (r *gormRepository) Update(ctx context.Context, exception *Exception) error {
	return translateDuplicate(r.db.WithContext(ctx).Save(exception).Error)
}

func (r *gormRepository) TransitionFromActive(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Exception{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListActiveByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) ([]Exception, error) {
	var exceptions []Exception
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ? AND status = ?", projectID, subcontractorID, StatusActive).
		Find(&exceptions).Error
	return exceptions, err
}

func (r *gormRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]Exception, error) {
	if limit <= 0 {
		limit = 200
	}
	var exceptions []Exception
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", StatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&exceptions).Error
	return exceptions, err
}

func (r *gormRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]Exception, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var exceptions []Exception
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&exceptions).Error
	return exceptions, err
}

func (r *gormRepository) HasActive(ctx context.Context, projectID, subcontractorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Exception{}).
		Where("project_id = ? AND subcontractor_id = ? AND status = ?", projectID, subcontractorID, StatusActive).
		Count(&count).Error
	return count > 0, err
}
