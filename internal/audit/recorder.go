package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder appends audit entries. Record is best-effort from the caller's
// perspective: the primary state transition it describes has already
// committed, so a failed audit write is logged, never propagated.
type Recorder interface {
	Record(ctx context.Context, companyID uuid.UUID, userID *uuid.UUID, entityType, entityID, action string, details map[string]any)
	List(ctx context.Context, companyID uuid.UUID, entityType, entityID string, limit int) ([]Entry, error)
}

type recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecorder creates a database-backed audit recorder.
func NewRecorder(db *gorm.DB, logger *zap.Logger) Recorder {
	return &recorder{db: db, logger: logger}
}

func (r *recorder) Record(ctx context.Context, companyID uuid.UUID, userID *uuid.UUID, entityType, entityID, action string, details map[string]any) {
	var payload []byte
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			r.logger.Error("failed to marshal audit details",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.String("action", action),
				zap.Error(err))
		} else {
			payload = data
		}
	}

	entry := &Entry{
		ID:         uuid.New(),
		CompanyID:  companyID,
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    payload,
		CreatedAt:  time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		// The primary operation is authoritative; a lost audit row is a
		// degraded outcome, not a fatal one.
		r.logger.Error("failed to write audit entry",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (r *recorder) List(ctx context.Context, companyID uuid.UUID, entityType, entityID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit)

	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	var entries []Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
