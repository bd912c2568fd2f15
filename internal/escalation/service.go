package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/config"
	"certshield/coi-backend/internal/notifications"
	"certshield/coi-backend/internal/verification"
	"certshield/coi-backend/pkg/apperrors"
)

// Service drives the staged reminder sequence and the critical stop-work
// path. It also satisfies verification.DeficiencyNotifier so a failing
// verdict triggers its stage-0 notice without waiting for the next sweep.
type Service interface {
	RunSweep(ctx context.Context, req SweepRequest) (*SweepResult, error)
	NotifyDeficiency(ctx context.Context, verdict *verification.Verdict) error
}

// SweepRequest configures one escalation pass over a company's assignments.
// Zero values fall back to the configured defaults. Preview runs the exact
// selection and decision logic but skips dispatch, so operators can see what
// a sweep would send before it sends it.
type SweepRequest struct {
	CompanyID      uuid.UUID `json:"company_id"`
	MinDaysWaiting int       `json:"min_days_waiting"`
	MaxFollowups   int       `json:"max_followups"`
	Preview        bool      `json:"preview"`
}

// SweepAction is one decided action for one assignment.
type SweepAction struct {
	ProjectID       uuid.UUID                      `json:"project_id"`
	SubcontractorID uuid.UUID                      `json:"subcontractor_id"`
	Kind            ActionKind                     `json:"kind"`
	Stage           *int                           `json:"stage,omitempty"`
	DaysWaiting     int                            `json:"days_waiting"`
	Urgent          bool                           `json:"urgent,omitempty"`
	Deliveries      []notifications.DeliveryResult `json:"deliveries,omitempty"`
}

type SweepResult struct {
	CompanyID      uuid.UUID     `json:"company_id"`
	Preview        bool          `json:"preview"`
	Evaluated      int           `json:"evaluated"`
	RemindersSent  int           `json:"reminders_sent"`
	CriticalAlerts int           `json:"critical_alerts"`
	Skipped        int           `json:"skipped"`
	Errors         int           `json:"errors"`
	Actions        []SweepAction `json:"actions"`
}

type service struct {
	assignments compliance.Repository
	verdicts    verification.Repository
	comms       notifications.Repository
	dispatcher  *notifications.Dispatcher
	recorder    audit.Recorder
	cfg         config.EscalationConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(
	assignments compliance.Repository,
	verdicts verification.Repository,
	comms notifications.Repository,
	dispatcher *notifications.Dispatcher,
	recorder audit.Recorder,
	cfg config.EscalationConfig,
	logger *zap.Logger,
) Service {
	return &service{
		assignments: assignments,
		verdicts:    verdicts,
		comms:       comms,
		dispatcher:  dispatcher,
		recorder:    recorder,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// RunSweep evaluates every non-compliant or pending assignment in the
// company. One assignment failing to evaluate never aborts the sweep; it is
// counted and logged and the pass moves on. Staged reminders are capped at
// MaxFollowups per run so a backlog cannot flood brokers; critical alerts
// are exempt from the cap.
func (s *service) RunSweep(ctx context.Context, req SweepRequest) (*SweepResult, error) {
	minDays := req.MinDaysWaiting
	if minDays <= 0 {
		minDays = s.cfg.MinDaysWaiting
	}
	maxFollowups := req.MaxFollowups
	if maxFollowups <= 0 {
		maxFollowups = s.cfg.MaxFollowups
	}

	assignments, err := s.assignments.ListAssignmentsByStatus(ctx, req.CompanyID,
		[]compliance.Status{compliance.StatusNonCompliant, compliance.StatusPending})
	if err != nil {
		return nil, &apperrors.DependencyUnavailable{Dependency: "assignment store", Cause: err}
	}

	result := &SweepResult{CompanyID: req.CompanyID, Preview: req.Preview}
	now := s.now()

	for i := range assignments {
		assignment := &assignments[i]
		result.Evaluated++

		action, err := s.evaluate(ctx, assignment, now, minDays)
		if err != nil {
			result.Errors++
			s.logger.Error("sweep evaluation failed",
				zap.String("project_id", assignment.ProjectID.String()),
				zap.String("subcontractor_id", assignment.SubcontractorID.String()),
				zap.Error(err))
			continue
		}
		if action == nil {
			result.Skipped++
			continue
		}

		if action.decision.Kind == ActionSendStage && result.RemindersSent >= maxFollowups {
			result.Skipped++
			s.logger.Info("follow-up cap reached, deferring to next sweep",
				zap.String("project_id", assignment.ProjectID.String()),
				zap.String("subcontractor_id", assignment.SubcontractorID.String()),
				zap.Int("stage", action.decision.Stage))
			continue
		}

		sweepAction := SweepAction{
			ProjectID:       assignment.ProjectID,
			SubcontractorID: assignment.SubcontractorID,
			Kind:            action.decision.Kind,
			DaysWaiting:     action.decision.DaysWaiting,
			Urgent:          action.decision.Urgent,
		}
		if action.decision.Kind == ActionSendStage {
			stage := action.decision.Stage
			sweepAction.Stage = &stage
		}

		if !req.Preview {
			deliveries, err := s.execute(ctx, assignment, action)
			if err != nil {
				result.Errors++
				s.logger.Error("sweep dispatch failed",
					zap.String("project_id", assignment.ProjectID.String()),
					zap.String("subcontractor_id", assignment.SubcontractorID.String()),
					zap.Error(err))
				continue
			}
			sweepAction.Deliveries = deliveries
		}

		switch action.decision.Kind {
		case ActionSendStage:
			result.RemindersSent++
		case ActionCriticalAlert:
			result.CriticalAlerts++
		}
		result.Actions = append(result.Actions, sweepAction)
	}

	s.logger.Info("escalation sweep complete",
		zap.String("company_id", req.CompanyID.String()),
		zap.Bool("preview", req.Preview),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("reminders_sent", result.RemindersSent),
		zap.Int("critical_alerts", result.CriticalAlerts),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))

	return result, nil
}

// pendingAction couples a decision with the verdict it was made against.
type pendingAction struct {
	decision Decision
	verdict  *verification.Verdict
}

func (s *service) evaluate(ctx context.Context, assignment *compliance.Assignment, now time.Time, minDays int) (*pendingAction, error) {
	verdict, err := s.verdicts.Latest(ctx, assignment.ProjectID, assignment.SubcontractorID)
	if err != nil {
		return nil, &apperrors.DependencyUnavailable{Dependency: "verdict store", Cause: err}
	}
	if verdict == nil {
		// Nothing submitted yet; there is no deficiency to chase.
		return nil, nil
	}

	hist, err := s.loadHistory(ctx, assignment, verdict.ID)
	if err != nil {
		return nil, err
	}

	decision := DecideNextAction(assignment.Status, assignment.OnSiteDate, hist, now, minDays)
	if decision.Kind == ActionNone {
		return nil, nil
	}
	return &pendingAction{decision: decision, verdict: verdict}, nil
}

func (s *service) loadHistory(ctx context.Context, assignment *compliance.Assignment, verificationID uuid.UUID) (History, error) {
	lastSentAt, err := s.comms.LastSentAt(ctx, assignment.ProjectID, assignment.SubcontractorID)
	if err != nil {
		return History{}, &apperrors.DependencyUnavailable{Dependency: "communication store", Cause: err}
	}
	maxStage, hasStage, err := s.comms.MaxStage(ctx, verificationID)
	if err != nil {
		return History{}, &apperrors.DependencyUnavailable{Dependency: "communication store", Cause: err}
	}
	criticalSent, err := s.comms.HasCriticalAlert(ctx, verificationID)
	if err != nil {
		return History{}, &apperrors.DependencyUnavailable{Dependency: "communication store", Cause: err}
	}
	return History{
		LastSentAt:        lastSentAt,
		MaxStage:          maxStage,
		HasStage:          hasStage,
		CriticalAlertSent: criticalSent,
	}, nil
}

func (s *service) execute(ctx context.Context, assignment *compliance.Assignment, action *pendingAction) ([]notifications.DeliveryResult, error) {
	sub, err := s.assignments.GetSubcontractor(ctx, assignment.SubcontractorID)
	if err != nil {
		return nil, err
	}
	project, err := s.assignments.GetProject(ctx, assignment.ProjectID)
	if err != nil {
		return nil, err
	}

	in := messageInput{
		project:       project,
		subcontractor: sub,
		verdict:       action.verdict,
		stage:         action.decision.Stage,
		urgent:        action.decision.Urgent,
		portalBaseURL: s.cfg.PortalBaseURL,
	}

	var subject, body, smsBody string

	var deliveries []notifications.DeliveryResult
	switch action.decision.Kind {
	case ActionCriticalAlert:
		subject, body, smsBody = buildCriticalAlertMessage(in)
		deliveries = s.dispatch(ctx, assignment, action, notifications.TypeCriticalAlert, nil, subject, body, smsBody,
			notifications.ResolveRecipients(sub, project, s.cfg.AdminEmails, notifications.TypeCriticalAlert))
		s.recorder.Record(ctx, assignment.CompanyID, nil, audit.EntityAssignment, assignment.ID.String(), "critical_alert_sent", map[string]any{
			"verification_id": action.verdict.ID.String(),
			"on_site_date":    assignment.OnSiteDate,
		})
	default:
		commType := notifications.TypeFollowUp
		if action.decision.Stage == 0 {
			commType = notifications.TypeDeficiency
		}
		stage := action.decision.Stage
		subject, body, smsBody = buildStageMessage(in)
		deliveries = s.dispatch(ctx, assignment, action, commType, &stage, subject, body, smsBody,
			notifications.ResolveRecipients(sub, project, s.cfg.AdminEmails, commType))
		s.recorder.Record(ctx, assignment.CompanyID, nil, audit.EntityAssignment, assignment.ID.String(), "reminder_sent", map[string]any{
			"verification_id": action.verdict.ID.String(),
			"stage":           stage,
			"days_waiting":    action.decision.DaysWaiting,
			"urgent":          action.decision.Urgent,
		})
	}

	return deliveries, nil
}

func (s *service) dispatch(ctx context.Context, assignment *compliance.Assignment, action *pendingAction, commType notifications.CommType, stage *int, subject, body, smsBody string, recipients []notifications.Recipient) []notifications.DeliveryResult {
	verificationID := action.verdict.ID
	return s.dispatcher.Dispatch(ctx, notifications.DispatchRequest{
		CompanyID:       assignment.CompanyID,
		ProjectID:       assignment.ProjectID,
		SubcontractorID: assignment.SubcontractorID,
		VerificationID:  &verificationID,
		Type:            commType,
		Stage:           stage,
		Subject:         subject,
		Body:            body,
		SMSBody:         smsBody,
		Recipients:      recipients,
	})
}

// NotifyDeficiency sends the immediate stage-0 notice for a failing verdict.
// It is idempotent per verdict: if any stage already went out for this
// verdict the sweep owns the sequence and nothing is sent here.
func (s *service) NotifyDeficiency(ctx context.Context, verdict *verification.Verdict) error {
	_, hasStage, err := s.comms.MaxStage(ctx, verdict.ID)
	if err != nil {
		return err
	}
	if hasStage {
		return nil
	}

	assignment, err := s.assignments.GetAssignment(ctx, verdict.ProjectID, verdict.SubcontractorID)
	if err != nil {
		return err
	}

	action := &pendingAction{
		decision: Decision{Kind: ActionSendStage, Stage: 0},
		verdict:  verdict,
	}
	_, err = s.execute(ctx, assignment, action)
	return err
}
