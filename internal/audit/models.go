package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entry is one append-only audit record. Rows are never updated or deleted;
// UserID is nulled (not cascaded) when the referenced user is removed so the
// trail survives user deletion.
type Entry struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID  uuid.UUID      `json:"company_id" gorm:"type:uuid;not null;index:idx_audit_company_created"`
	UserID     *uuid.UUID     `json:"user_id" gorm:"type:uuid"`
	EntityType string         `json:"entity_type" gorm:"not null;index:idx_audit_entity"`
	EntityID   string         `json:"entity_id" gorm:"not null;index:idx_audit_entity"`
	Action     string         `json:"action" gorm:"not null"`
	Details    datatypes.JSON `json:"details" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime;index:idx_audit_company_created"`
}

// Entity types recorded by the engine.
const (
	EntityVerdict       = "verification_verdict"
	EntityAssignment    = "compliance_assignment"
	EntityException     = "compliance_exception"
	EntityCommunication = "communication"
)
