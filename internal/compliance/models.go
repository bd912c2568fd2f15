package compliance

import (
	"time"

	"github.com/google/uuid"
)

// Status is the derived per-project-per-subcontractor compliance state.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusNonCompliant Status = "non_compliant"
	StatusPending      Status = "pending"
	StatusException    Status = "exception"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompliant, StatusNonCompliant, StatusPending, StatusException:
		return true
	}
	return false
}

// Assignment pairs one subcontractor with one project. Its Status column is a
// cached projection owned by the resolver: it must always be re-derivable
// from the latest verdict plus any active exception.
type Assignment struct {
	ID              uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID       uuid.UUID  `json:"company_id" gorm:"type:uuid;not null;index"`
	ProjectID       uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_pair"`
	SubcontractorID uuid.UUID  `json:"subcontractor_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_pair"`
	Status          Status     `json:"status" gorm:"not null;default:'pending';index"`
	OnSiteDate      *time.Time `json:"on_site_date"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Subcontractor carries the contact surface the dispatcher resolves
// recipients from. Broker contact, when present, takes precedence for
// deficiency traffic.
type Subcontractor struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `json:"company_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	BrokerName   string    `json:"broker_name"`
	BrokerEmail  string    `json:"broker_email"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Project is the construction project side of an assignment.
type Project struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `json:"company_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	ManagerEmail string    `json:"manager_email"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
