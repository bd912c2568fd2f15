package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"certshield/coi-backend/pkg/apperrors"
)

// DispatchRequest is one decided escalation action fanned out to every
// eligible (recipient, channel) pair.
type DispatchRequest struct {
	CompanyID       uuid.UUID
	ProjectID       uuid.UUID
	SubcontractorID uuid.UUID
	VerificationID  *uuid.UUID
	Type            CommType
	Stage           *int
	Subject         string
	Body            string
	SMSBody         string
	Recipients      []Recipient
}

// DeliveryResult is the per-(recipient, channel) outcome of a dispatch.
type DeliveryResult struct {
	CommunicationID uuid.UUID  `json:"communication_id"`
	Recipient       string     `json:"recipient"`
	Kind            RecipientKind `json:"recipient_kind"`
	Channel         Channel    `json:"channel"`
	Status          CommStatus `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// Dispatcher fans one dispatch request out across recipients and channels,
// recording one Communication row per pair. A failure on one pair never
// short-circuits the others; the caller owns (assignment, stage) dedup.
type Dispatcher struct {
	repo        Repository
	email       EmailSender
	sms         SMSSender
	logger      *zap.Logger
	concurrency int
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(repo Repository, email EmailSender, sms SMSSender, logger *zap.Logger, concurrency int, sendTimeout time.Duration) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		repo:        repo,
		email:       email,
		sms:         sms,
		logger:      logger,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

type sendTask struct {
	recipient Recipient
	channel   Channel
	address   string
}

// Dispatch sends on every eligible channel for every recipient. Sends run in
// a bounded parallel group so one slow provider call does not delay the
// rest; each Communication row is inserted before its provider call so a
// crash mid-dispatch leaves an auditable trail rather than a silent gap.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) []DeliveryResult {
	var tasks []sendTask
	for _, recipient := range req.Recipients {
		if recipient.Email != "" {
			tasks = append(tasks, sendTask{recipient: recipient, channel: ChannelEmail, address: recipient.Email})
		}
		if recipient.Phone != "" && req.SMSBody != "" {
			tasks = append(tasks, sendTask{recipient: recipient, channel: ChannelSMS, address: recipient.Phone})
		}
	}

	results := make([]DeliveryResult, len(tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)

	for i, task := range tasks {
		group.Go(func() error {
			results[i] = d.sendOne(groupCtx, req, task)
			return nil
		})
	}
	// Worker funcs always return nil; failures live in the result list.
	_ = group.Wait()

	return results
}

func (d *Dispatcher) sendOne(ctx context.Context, req DispatchRequest, task sendTask) DeliveryResult {
	comm := &Communication{
		ID:              uuid.New(),
		CompanyID:       req.CompanyID,
		ProjectID:       req.ProjectID,
		SubcontractorID: req.SubcontractorID,
		VerificationID:  req.VerificationID,
		Type:            req.Type,
		Stage:           req.Stage,
		Channel:         task.channel,
		RecipientKind:   task.recipient.Kind,
		Recipient:       task.address,
		Subject:         req.Subject,
		Body:            req.Body,
		Status:          StatusPending,
	}
	if task.channel == ChannelSMS {
		comm.Subject = ""
		comm.Body = req.SMSBody
	}

	result := DeliveryResult{
		CommunicationID: comm.ID,
		Recipient:       task.address,
		Kind:            task.recipient.Kind,
		Channel:         task.channel,
	}

	if err := d.repo.Create(ctx, comm); err != nil {
		d.logger.Error("failed to record communication",
			zap.String("recipient", task.address),
			zap.String("channel", string(task.channel)),
			zap.Error(err))
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	var providerID string
	var err error
	switch task.channel {
	case ChannelEmail:
		providerID, err = d.email.SendEmail(sendCtx, task.address, comm.Subject, comm.Body)
	case ChannelSMS:
		providerID, err = d.sms.SendSMS(sendCtx, task.address, comm.Body)
	}

	now := d.now()
	if err != nil {
		failure := &apperrors.DeliveryFailure{
			Recipient: task.address,
			Channel:   string(task.channel),
			Cause:     err,
		}
		comm.Status = StatusFailed
		comm.ErrorMessage = failure.Error()
		result.Status = StatusFailed
		result.Error = failure.Error()
		d.logger.Warn("communication send failed",
			zap.String("communication_id", comm.ID.String()),
			zap.String("channel", string(task.channel)),
			zap.Error(failure))
	} else {
		comm.Status = StatusSent
		comm.ProviderMessageID = providerID
		comm.SentAt = &now
		result.Status = StatusSent
	}

	if updateErr := d.repo.Update(ctx, comm); updateErr != nil {
		d.logger.Error("failed to update communication outcome",
			zap.String("communication_id", comm.ID.String()),
			zap.Error(updateErr))
		if result.Error == "" {
			result.Error = updateErr.Error()
		}
	}

	return result
}
