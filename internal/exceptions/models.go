package exceptions

import (
	"time"

	"github.com/google/uuid"

	"certshield/coi-backend/pkg/workflows"
)

// ExceptionStatus is the lifecycle state of a granted deviation.
type ExceptionStatus string

const (
	StatusPendingApproval ExceptionStatus = "pending_approval"
	StatusActive          ExceptionStatus = "active"
	StatusExpired         ExceptionStatus = "expired"
	StatusResolved        ExceptionStatus = "resolved"
	StatusClosed          ExceptionStatus = "closed"
)

// RiskLevel grades the exposure an exception accepts.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ExpirationType determines how an exception ends.
type ExpirationType string

const (
	ExpireUntilResolved ExpirationType = "until_resolved"
	ExpireFixedDuration ExpirationType = "fixed_duration"
	ExpireSpecificDate  ExpirationType = "specific_date"
	ExpirePermanent     ExpirationType = "permanent"
)

func (e ExpirationType) Valid() bool {
	switch e {
	case ExpireUntilResolved, ExpireFixedDuration, ExpireSpecificDate, ExpirePermanent:
		return true
	}
	return false
}

// RequiresExpiry reports whether the type carries a concrete expires_at.
func (e ExpirationType) RequiresExpiry() bool {
	return e == ExpireFixedDuration || e == ExpireSpecificDate
}

// Exception is a time-bounded, human-approved override permitting a
// subcontractor to remain engaged despite a non-compliant verdict. At most
// one exception may be active per assignment; the partial unique index on
// assignment_id enforces it at the data layer.
type Exception struct {
	ID              uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID       uuid.UUID       `json:"company_id" gorm:"type:uuid;not null;index"`
	AssignmentID    uuid.UUID       `json:"assignment_id" gorm:"type:uuid;not null;index:idx_exceptions_assignment;index:idx_exceptions_one_active,unique,where:status = 'active'"`
	ProjectID       uuid.UUID       `json:"project_id" gorm:"type:uuid;not null;index"`
	SubcontractorID uuid.UUID       `json:"subcontractor_id" gorm:"type:uuid;not null;index"`
	VerificationID  *uuid.UUID      `json:"verification_id" gorm:"type:uuid"`
	IssueSummary    string          `json:"issue_summary" gorm:"not null"`
	Reason          string          `json:"reason" gorm:"not null"`
	RiskLevel       RiskLevel       `json:"risk_level" gorm:"not null"`
	Status          ExceptionStatus `json:"status" gorm:"not null;index:idx_exceptions_assignment"`
	ExpirationType  ExpirationType  `json:"expiration_type" gorm:"not null"`
	ExpiresAt       *time.Time      `json:"expires_at" gorm:"index"`
	CreatedByUserID uuid.UUID       `json:"created_by_user_id" gorm:"type:uuid;not null"`
	ApprovedByUserID *uuid.UUID     `json:"approved_by_user_id" gorm:"type:uuid"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	ResolutionType  string          `json:"resolution_type"`
	ResolutionNotes string          `json:"resolution_notes"`
	ResolvedAt      *time.Time      `json:"resolved_at"`
	ClosedAt        *time.Time      `json:"closed_at"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// Terminal reports whether the exception can no longer transition.
func (e *Exception) Terminal() bool {
	switch e.Status {
	case StatusExpired, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// lifecycle holds the allowed transitions. expired/resolved/closed are
// terminal and therefore absent.
var lifecycle = workflows.NewStateMachine("exception", map[string][]string{
	string(StatusPendingApproval): {string(StatusActive), string(StatusClosed)},
	string(StatusActive):          {string(StatusResolved), string(StatusExpired), string(StatusClosed)},
})
