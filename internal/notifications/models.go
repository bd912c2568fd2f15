package notifications

import (
	"time"

	"github.com/google/uuid"
)

// CommType classifies an outbound communication.
type CommType string

const (
	TypeDeficiency         CommType = "deficiency"
	TypeFollowUp           CommType = "follow_up"
	TypeConfirmation       CommType = "confirmation"
	TypeExpirationReminder CommType = "expiration_reminder"
	TypeCriticalAlert      CommType = "critical_alert"
)

// Channel is the delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// CommStatus is the delivery state of one communication. Upgrades are
// monotonic (pending → sent → delivered → opened); failed may be set from
// any state.
type CommStatus string

const (
	StatusPending   CommStatus = "pending"
	StatusSent      CommStatus = "sent"
	StatusDelivered CommStatus = "delivered"
	StatusOpened    CommStatus = "opened"
	StatusFailed    CommStatus = "failed"
)

// statusRank orders the monotonic upgrade chain. failed sits outside it.
var statusRank = map[CommStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusOpened:    3,
}

// CanUpgrade reports whether a delivery callback may move a communication
// from one status to another. Downgrades are ignored, not errors: an opened
// callback arriving before delivered leaves the record at opened.
func CanUpgrade(from, to CommStatus) bool {
	if to == StatusFailed {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// RecipientKind identifies who a communication is addressed to.
type RecipientKind string

const (
	KindSubcontractor  RecipientKind = "subcontractor"
	KindBroker         RecipientKind = "broker"
	KindProjectManager RecipientKind = "project_manager"
	KindAdmin          RecipientKind = "admin"
)

// Recipient is one resolved destination for a dispatch.
type Recipient struct {
	Kind  RecipientKind
	Name  string
	Email string
	Phone string
}

// Communication is one append-only send record per (recipient, channel)
// pair. Stage is set for deficiency/follow_up rows and drives escalation
// ordering; it is null for other types.
type Communication struct {
	ID                uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CompanyID         uuid.UUID     `json:"company_id" gorm:"type:uuid;not null;index"`
	ProjectID         uuid.UUID     `json:"project_id" gorm:"type:uuid;not null;index:idx_comms_assignment"`
	SubcontractorID   uuid.UUID     `json:"subcontractor_id" gorm:"type:uuid;not null;index:idx_comms_assignment"`
	VerificationID    *uuid.UUID    `json:"verification_id" gorm:"type:uuid;index:idx_comms_verification"`
	Type              CommType      `json:"type" gorm:"not null;index:idx_comms_verification"`
	Stage             *int          `json:"stage"`
	Channel           Channel       `json:"channel" gorm:"not null"`
	RecipientKind     RecipientKind `json:"recipient_kind" gorm:"not null"`
	Recipient         string        `json:"recipient" gorm:"not null"`
	Subject           string        `json:"subject"`
	Body              string        `json:"body"`
	Status            CommStatus    `json:"status" gorm:"not null;index"`
	ProviderMessageID string        `json:"provider_message_id"`
	ErrorMessage      string        `json:"error_message"`
	SentAt            *time.Time    `json:"sent_at"`
	DeliveredAt       *time.Time    `json:"delivered_at"`
	OpenedAt          *time.Time    `json:"opened_at"`
	CreatedAt         time.Time     `json:"created_at" gorm:"autoCreateTime"`
}
