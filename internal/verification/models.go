package verification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VerdictStatus is the outcome of certificate verification for one document.
type VerdictStatus string

const (
	VerdictPass   VerdictStatus = "pass"
	VerdictFail   VerdictStatus = "fail"
	VerdictReview VerdictStatus = "review"
)

// Valid reports whether the status is one of the known outcomes.
func (s VerdictStatus) Valid() bool {
	switch s {
	case VerdictPass, VerdictFail, VerdictReview:
		return true
	}
	return false
}

// DeficiencySchemaVersion is the current deficiency record layout version.
const DeficiencySchemaVersion = 2

// Deficiency is one structured gap found on a certificate. Records written
// before versioning decode as schema version 1; readers treat a missing
// version as 1 and fill defaults rather than reject the row.
type Deficiency struct {
	SchemaVersion int    `json:"schema_version,omitempty"`
	Type          string `json:"type"`
	Description   string `json:"description"`
}

// Verdict is one verification record per submitted certificate document.
// Immutable once created except for a manual override, which replaces
// Status/VerifiedByUserID/VerifiedAt. Never deleted, only superseded by a
// newer verdict for a newer document.
type Verdict struct {
	ID               uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID        uuid.UUID      `json:"company_id" gorm:"type:uuid;not null;index"`
	DocumentID       uuid.UUID      `json:"document_id" gorm:"type:uuid;not null;index"`
	ProjectID        uuid.UUID      `json:"project_id" gorm:"type:uuid;not null;index:idx_verdicts_assignment"`
	SubcontractorID  uuid.UUID      `json:"subcontractor_id" gorm:"type:uuid;not null;index:idx_verdicts_assignment"`
	Status           VerdictStatus  `json:"status" gorm:"not null"`
	ConfidenceScore  float64        `json:"confidence_score" gorm:"not null"`
	DeficiencyData   datatypes.JSON `json:"deficiencies" gorm:"type:jsonb"`
	VerifiedByUserID *uuid.UUID     `json:"verified_by_user_id" gorm:"type:uuid"`
	VerifiedAt       time.Time      `json:"verified_at" gorm:"not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// Deficiencies decodes the stored deficiency list, upgrading pre-versioning
// records to the current schema shape.
func (v *Verdict) Deficiencies() []Deficiency {
	if len(v.DeficiencyData) == 0 {
		return nil
	}
	var items []Deficiency
	if err := json.Unmarshal(v.DeficiencyData, &items); err != nil {
		return nil
	}
	for i := range items {
		if items[i].SchemaVersion == 0 {
			items[i].SchemaVersion = 1
		}
	}
	return items
}

// EncodeDeficiencies serializes a deficiency list for storage, stamping the
// current schema version on entries that lack one.
func EncodeDeficiencies(items []Deficiency) (datatypes.JSON, error) {
	if len(items) == 0 {
		return nil, nil
	}
	for i := range items {
		if items[i].SchemaVersion == 0 {
			items[i].SchemaVersion = DeficiencySchemaVersion
		}
	}
	return json.Marshal(items)
}
