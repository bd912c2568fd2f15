package escalation

import (
	"time"

	"certshield/coi-backend/internal/compliance"
)

// FinalStage is the last automated follow-up (the final notice). Beyond it
// no further staged reminder is produced; only the critical path remains.
const FinalStage = 3

// UrgentAfterDays attaches URGENT wording to reminders once an assignment
// has waited this long. Presentation only; it never gates the decision.
const UrgentAfterDays = 7

// ActionKind is the scheduler's verdict on what to emit next.
type ActionKind string

const (
	ActionNone          ActionKind = "none"
	ActionSendStage     ActionKind = "send_stage"
	ActionCriticalAlert ActionKind = "critical_alert"
)

// Decision is the outcome of one scheduling evaluation.
type Decision struct {
	Kind        ActionKind
	Stage       int
	DaysWaiting int
	Urgent      bool
}

// History summarizes the prior communications that matter to the decision.
type History struct {
	// LastSentAt is the send time of the most recent communication for the
	// assignment that actually went out. Failed sends do not appear here.
	LastSentAt *time.Time
	// MaxStage is the highest stage already attempted for the current
	// verdict; HasStage is false when no stage has gone out at all.
	MaxStage int
	HasStage bool
	// CriticalAlertSent is true once a critical alert exists for the
	// current verdict.
	CriticalAlertSent bool
}

// DecideNextAction computes the next escalation step for an assignment.
//
// The critical path outranks the staged sequence: a subcontractor scheduled
// on site today (or earlier) while out of compliance gets a stop-work alert
// immediately, whatever follow-up stage they are in. Otherwise stages advance
// strictly one at a time, gated on whole days waited since the last
// successful send.
func DecideNextAction(status compliance.Status, onSiteDate *time.Time, hist History, now time.Time, minDaysWaiting int) Decision {
	if status != compliance.StatusNonCompliant && status != compliance.StatusPending {
		return Decision{Kind: ActionNone}
	}

	if onSiteTodayOrEarlier(onSiteDate, now) && !hist.CriticalAlertSent {
		return Decision{Kind: ActionCriticalAlert, DaysWaiting: daysWaiting(hist.LastSentAt, now)}
	}

	if !hist.HasStage {
		// Stage 0 goes out immediately on a failing verdict.
		return Decision{Kind: ActionSendStage, Stage: 0}
	}

	next := hist.MaxStage + 1
	if next > FinalStage {
		return Decision{Kind: ActionNone}
	}

	waited := daysWaiting(hist.LastSentAt, now)
	if waited < minDaysWaiting {
		return Decision{Kind: ActionNone, DaysWaiting: waited}
	}

	return Decision{
		Kind:        ActionSendStage,
		Stage:       next,
		DaysWaiting: waited,
		Urgent:      waited >= UrgentAfterDays,
	}
}

// daysWaiting floors to whole days so a reminder never escalates a few
// hours early.
func daysWaiting(lastSentAt *time.Time, now time.Time) int {
	if lastSentAt == nil {
		return 0
	}
	elapsed := now.Sub(*lastSentAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}

func onSiteTodayOrEarlier(onSiteDate *time.Time, now time.Time) bool {
	if onSiteDate == nil {
		return false
	}
	onSite := onSiteDate.Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)
	return !onSite.After(today)
}
