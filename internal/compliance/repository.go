package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"certshield/coi-backend/pkg/apperrors"
)

type Repository interface {
	GetAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Assignment, error)
	GetOrCreateAssignment(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID) (*Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetOnSiteDate(ctx context.Context, id uuid.UUID, onSiteDate *time.Time) error
	ListAssignmentsByStatus(ctx context.Context, companyID uuid.UUID, statuses []Status) ([]Assignment, error)
	ListAssignments(ctx context.Context, companyID uuid.UUID) ([]Assignment, error)
	ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error)

	GetSubcontractor(ctx context.Context, id uuid.UUID) (*Subcontractor, error)
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) (*Assignment, error) {
	var assignment Assignment
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND subcontractor_id = ?", projectID, subcontractorID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "assignment", ID: projectID.String() + "/" + subcontractorID.String()}
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetOrCreateAssignment upserts against the (project, subcontractor) unique
// pair so two concurrent first writers converge on one row.
func (r *gormRepository) GetOrCreateAssignment(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID) (*Assignment, error) {
	assignment := &Assignment{
		ID:              uuid.New(),
		CompanyID:       companyID,
		ProjectID:       projectID,
		SubcontractorID: subcontractorID,
		Status:          StatusPending,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "subcontractor_id"}},
			DoNothing: true,
		}).
		Create(assignment).Error
	if err != nil {
		return nil, err
	}
	return r.GetAssignment(ctx, projectID, subcontractorID)
}

func (r *gormRepository) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.db.WithContext(ctx).
		Model(&Assignment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *gormRepository) SetOnSiteDate(ctx context.Context, id uuid.UUID, onSiteDate *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&Assignment{}).
		Where("id = ?", id).
		Update("on_site_date", onSiteDate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &apperrors.NotFoundError{Resource: "assignment", ID: id.String()}
	}
	return nil
}

func (r *gormRepository) ListAssignmentsByStatus(ctx context.Context, companyID uuid.UUID, statuses []Status) ([]Assignment, error) {
	var assignments []Assignment
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status IN ?", companyID, statuses).
		Order("updated_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *gormRepository) ListAssignments(ctx context.Context, companyID uuid.UUID) ([]Assignment, error) {
	var assignments []Assignment
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *gormRepository) ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Assignment{}).
		Distinct("company_id").
		Pluck("company_id", &ids).Error
	return ids, err
}

func (r *gormRepository) GetSubcontractor(ctx context.Context, id uuid.UUID) (*Subcontractor, error) {
	var sub Subcontractor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "subcontractor", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "project", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}
