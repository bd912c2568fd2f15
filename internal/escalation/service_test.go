package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/config"
	"certshield/coi-backend/internal/notifications"
	"certshield/coi-backend/internal/verification"
	"certshield/coi-backend/pkg/apperrors"
)

type MockComplianceRepo struct {
	mock.Mock
}

func (m *MockComplianceRepo) GetAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID) (*compliance.Assignment, error) {
	args := m.Called(ctx, projectID, subcontractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Assignment), args.Error(1)
}

func (m *MockComplianceRepo) GetOrCreateAssignment(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID) (*compliance.Assignment, error) {
	args := m.Called(ctx, companyID, projectID, subcontractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Assignment), args.Error(1)
}

func (m *MockComplianceRepo) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status compliance.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockComplianceRepo) SetOnSiteDate(ctx context.Context, id uuid.UUID, onSiteDate *time.Time) error {
	args := m.Called(ctx, id, onSiteDate)
	return args.Error(0)
}

func (m *MockComplianceRepo) ListAssignmentsByStatus(ctx context.Context, companyID uuid.UUID, statuses []compliance.Status) ([]compliance.Assignment, error) {
	args := m.Called(ctx, companyID, statuses)
	return args.Get(0).([]compliance.Assignment), args.Error(1)
}

func (m *MockComplianceRepo) ListAssignments(ctx context.Context, companyID uuid.UUID) ([]compliance.Assignment, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]compliance.Assignment), args.Error(1)
}

func (m *MockComplianceRepo) ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockComplianceRepo) GetSubcontractor(ctx context.Context, id uuid.UUID) (*compliance.Subcontractor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Subcontractor), args.Error(1)
}

func (m *MockComplianceRepo) GetProject(ctx context.Context, id uuid.UUID) (*compliance.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Project), args.Error(1)
}

type MockVerdictRepo struct {
	mock.Mock
}

func (m *MockVerdictRepo) Create(ctx context.Context, verdict *verification.Verdict) error {
	args := m.Called(ctx, verdict)
	return args.Error(0)
}

func (m *MockVerdictRepo) GetByID(ctx context.Context, id uuid.UUID) (*verification.Verdict, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Verdict), args.Error(1)
}

func (m *MockVerdictRepo) Update(ctx context.Context, verdict *verification.Verdict) error {
	args := m.Called(ctx, verdict)
	return args.Error(0)
}

func (m *MockVerdictRepo) Latest(ctx context.Context, projectID, subcontractorID uuid.UUID) (*verification.Verdict, error) {
	args := m.Called(ctx, projectID, subcontractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Verdict), args.Error(1)
}

func (m *MockVerdictRepo) ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]verification.Verdict, error) {
	args := m.Called(ctx, projectID, subcontractorID, limit)
	return args.Get(0).([]verification.Verdict), args.Error(1)
}

type MockCommRepo struct {
	mock.Mock
}

func (m *MockCommRepo) Create(ctx context.Context, comm *notifications.Communication) error {
	args := m.Called(ctx, comm)
	return args.Error(0)
}

func (m *MockCommRepo) GetByID(ctx context.Context, id uuid.UUID) (*notifications.Communication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notifications.Communication), args.Error(1)
}

func (m *MockCommRepo) Update(ctx context.Context, comm *notifications.Communication) error {
	args := m.Called(ctx, comm)
	return args.Error(0)
}

func (m *MockCommRepo) ListByAssignment(ctx context.Context, projectID, subcontractorID uuid.UUID, limit int) ([]notifications.Communication, error) {
	args := m.Called(ctx, projectID, subcontractorID, limit)
	return args.Get(0).([]notifications.Communication), args.Error(1)
}

func (m *MockCommRepo) LastSentAt(ctx context.Context, projectID, subcontractorID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, projectID, subcontractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockCommRepo) MaxStage(ctx context.Context, verificationID uuid.UUID) (int, bool, error) {
	args := m.Called(ctx, verificationID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockCommRepo) HasCriticalAlert(ctx context.Context, verificationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, verificationID)
	return args.Bool(0), args.Error(1)
}

// MockRecorder is a mock implementation of the audit.Recorder interface
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, companyID uuid.UUID, userID *uuid.UUID, entityType, entityID, action string, details map[string]any) {
	m.Called(ctx, companyID, userID, entityType, entityID, action, details)
}

func (m *MockRecorder) List(ctx context.Context, companyID uuid.UUID, entityType, entityID string, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, companyID, entityType, entityID, limit)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

type captureEmailSender struct{ sent []string }

func (s *captureEmailSender) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	s.sent = append(s.sent, subject)
	return "msg-" + to, nil
}

type captureSMSSender struct{ sent []string }

func (s *captureSMSSender) SendSMS(ctx context.Context, phone, message string) (string, error) {
	s.sent = append(s.sent, message)
	return "msg-" + phone, nil
}

type sweepFixture struct {
	assignments *MockComplianceRepo
	verdicts    *MockVerdictRepo
	comms       *MockCommRepo
	recorder    *MockRecorder
	email       *captureEmailSender
	sms         *captureSMSSender
	service     Service
}

func newSweepFixture() *sweepFixture {
	f := &sweepFixture{
		assignments: new(MockComplianceRepo),
		verdicts:    new(MockVerdictRepo),
		comms:       new(MockCommRepo),
		recorder:    new(MockRecorder),
		email:       &captureEmailSender{},
		sms:         &captureSMSSender{},
	}
	f.recorder.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.comms.On("Create", mock.Anything, mock.AnythingOfType("*notifications.Communication")).Return(nil).Maybe()
	f.comms.On("Update", mock.Anything, mock.AnythingOfType("*notifications.Communication")).Return(nil).Maybe()

	dispatcher := notifications.NewDispatcher(f.comms, f.email, f.sms, zap.NewNop(), 1, time.Second)
	cfg := config.EscalationConfig{
		MinDaysWaiting:      2,
		MaxFollowups:        10,
		DispatchConcurrency: 1,
		AdminEmails:         []string{"safety@gc.example"},
	}
	f.service = NewService(f.assignments, f.verdicts, f.comms, dispatcher, f.recorder, cfg, zap.NewNop())
	return f
}

func sweepAssignment(companyID uuid.UUID, status compliance.Status) compliance.Assignment {
	return compliance.Assignment{
		ID:              uuid.New(),
		CompanyID:       companyID,
		ProjectID:       uuid.New(),
		SubcontractorID: uuid.New(),
		Status:          status,
	}
}

func failingVerdict(assignment *compliance.Assignment) *verification.Verdict {
	data, _ := verification.EncodeDeficiencies([]verification.Deficiency{
		{Type: "gl_limit_below_requirement", Description: "limit too low"},
	})
	return &verification.Verdict{
		ID:              uuid.New(),
		CompanyID:       assignment.CompanyID,
		ProjectID:       assignment.ProjectID,
		SubcontractorID: assignment.SubcontractorID,
		Status:          verification.VerdictFail,
		DeficiencyData:  data,
		VerifiedAt:      time.Now().Add(-72 * time.Hour),
	}
}

func (f *sweepFixture) expectParties(assignment *compliance.Assignment) {
	f.assignments.On("GetSubcontractor", mock.Anything, assignment.SubcontractorID).Return(&compliance.Subcontractor{
		ID:          assignment.SubcontractorID,
		Name:        "Apex Electrical",
		BrokerName:  "Hartley Insurance",
		BrokerEmail: "certs@hartley.example",
	}, nil)
	f.assignments.On("GetProject", mock.Anything, assignment.ProjectID).Return(&compliance.Project{
		ID:           assignment.ProjectID,
		Name:         "Tower West",
		ManagerEmail: "pm@gc.example",
	}, nil)
}

func TestRunSweepSendsDueFollowUp(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	assignment := sweepAssignment(companyID, compliance.StatusNonCompliant)
	verdict := failingVerdict(&assignment)
	lastSent := time.Now().Add(-3 * 24 * time.Hour)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID,
		[]compliance.Status{compliance.StatusNonCompliant, compliance.StatusPending}).
		Return([]compliance.Assignment{assignment}, nil)
	f.verdicts.On("Latest", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(verdict, nil)
	f.comms.On("LastSentAt", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(&lastSent, nil)
	f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)
	f.comms.On("HasCriticalAlert", mock.Anything, verdict.ID).Return(false, nil)
	f.expectParties(&assignment)

	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 1, result.RemindersSent)
	assert.Equal(t, 0, result.Errors)
	require.Len(t, result.Actions, 1)
	require.NotNil(t, result.Actions[0].Stage)
	assert.Equal(t, 1, *result.Actions[0].Stage)
	require.Len(t, f.email.sent, 1)
	assert.Contains(t, f.email.sent[0], "Follow-Up Reminder #1")
}

func TestRunSweepPreviewDoesNotDispatch(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	assignment := sweepAssignment(companyID, compliance.StatusNonCompliant)
	verdict := failingVerdict(&assignment)
	lastSent := time.Now().Add(-3 * 24 * time.Hour)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment{assignment}, nil)
	f.verdicts.On("Latest", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(verdict, nil)
	f.comms.On("LastSentAt", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(&lastSent, nil)
	f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)
	f.comms.On("HasCriticalAlert", mock.Anything, verdict.ID).Return(false, nil)

	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID, Preview: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)
	require.Len(t, result.Actions, 1)
	assert.Empty(t, result.Actions[0].Deliveries)
	assert.Empty(t, f.email.sent)
	assert.Empty(t, f.sms.sent)
}

func TestRunSweepHonorsFollowupCap(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	first := sweepAssignment(companyID, compliance.StatusNonCompliant)
	second := sweepAssignment(companyID, compliance.StatusNonCompliant)
	lastSent := time.Now().Add(-3 * 24 * time.Hour)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment{first, second}, nil)
	for _, assignment := range []*compliance.Assignment{&first, &second} {
		verdict := failingVerdict(assignment)
		f.verdicts.On("Latest", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(verdict, nil)
		f.comms.On("LastSentAt", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(&lastSent, nil)
		f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)
		f.comms.On("HasCriticalAlert", mock.Anything, verdict.ID).Return(false, nil)
		f.expectParties(assignment)
	}

	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID, MaxFollowups: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunSweepCriticalAlertExemptFromCap(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	staged := sweepAssignment(companyID, compliance.StatusNonCompliant)
	critical := sweepAssignment(companyID, compliance.StatusNonCompliant)
	onSite := time.Now().Add(-24 * time.Hour)
	critical.OnSiteDate = &onSite
	lastSent := time.Now().Add(-3 * 24 * time.Hour)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment{staged, critical}, nil)
	for _, assignment := range []*compliance.Assignment{&staged, &critical} {
		verdict := failingVerdict(assignment)
		f.verdicts.On("Latest", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(verdict, nil)
		f.comms.On("LastSentAt", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(&lastSent, nil)
		f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)
		f.comms.On("HasCriticalAlert", mock.Anything, verdict.ID).Return(false, nil)
		f.expectParties(assignment)
	}

	// Cap of 1 is consumed by the staged reminder; the critical alert still
	// goes out.
	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID, MaxFollowups: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)
	assert.Equal(t, 1, result.CriticalAlerts)
}

func TestRunSweepContinuesPastFailures(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	broken := sweepAssignment(companyID, compliance.StatusNonCompliant)
	healthy := sweepAssignment(companyID, compliance.StatusNonCompliant)
	verdict := failingVerdict(&healthy)
	lastSent := time.Now().Add(-3 * 24 * time.Hour)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment{broken, healthy}, nil)
	f.verdicts.On("Latest", mock.Anything, broken.ProjectID, broken.SubcontractorID).
		Return(nil, assert.AnError)
	f.verdicts.On("Latest", mock.Anything, healthy.ProjectID, healthy.SubcontractorID).Return(verdict, nil)
	f.comms.On("LastSentAt", mock.Anything, healthy.ProjectID, healthy.SubcontractorID).Return(&lastSent, nil)
	f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)
	f.comms.On("HasCriticalAlert", mock.Anything, verdict.ID).Return(false, nil)
	f.expectParties(&healthy)

	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.RemindersSent)
}

func TestRunSweepSkipsAssignmentsWithoutVerdicts(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	assignment := sweepAssignment(companyID, compliance.StatusPending)

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment{assignment}, nil)
	f.verdicts.On("Latest", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(nil, nil)

	result, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.RemindersSent)
}

func TestRunSweepAssignmentStoreUnavailable(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()

	f.assignments.On("ListAssignmentsByStatus", mock.Anything, companyID, mock.Anything).
		Return([]compliance.Assignment(nil), assert.AnError)

	_, err := f.service.RunSweep(context.Background(), SweepRequest{CompanyID: companyID})

	var dependencyErr *apperrors.DependencyUnavailable
	require.ErrorAs(t, err, &dependencyErr)
	assert.Equal(t, "assignment store", dependencyErr.Dependency)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNotifyDeficiencySendsStageZero(t *testing.T) {
	f := newSweepFixture()
	companyID := uuid.New()
	assignment := sweepAssignment(companyID, compliance.StatusNonCompliant)
	verdict := failingVerdict(&assignment)

	f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, false, nil)
	f.assignments.On("GetAssignment", mock.Anything, assignment.ProjectID, assignment.SubcontractorID).Return(&assignment, nil)
	f.expectParties(&assignment)

	err := f.service.NotifyDeficiency(context.Background(), verdict)

	require.NoError(t, err)
	require.Len(t, f.email.sent, 1)
	assert.Contains(t, f.email.sent[0], "Insurance Deficiency Notice")
}

func TestNotifyDeficiencyIdempotentPerVerdict(t *testing.T) {
	f := newSweepFixture()
	verdict := &verification.Verdict{ID: uuid.New()}

	f.comms.On("MaxStage", mock.Anything, verdict.ID).Return(0, true, nil)

	err := f.service.NotifyDeficiency(context.Background(), verdict)

	require.NoError(t, err)
	assert.Empty(t, f.email.sent)
	f.assignments.AssertNotCalled(t, "GetAssignment", mock.Anything, mock.Anything, mock.Anything)
}
