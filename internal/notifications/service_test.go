package notifications

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
	"certshield/coi-backend/pkg/apperrors"
)

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

func newTestService(repo Repository) (Service, *MockRecorder) {
	recorder := new(MockRecorder)
	recorder.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return NewService(repo, recorder, zap.NewNop()), recorder
}

func sentCommunication() *Communication {
	sentAt := time.Now().Add(-time.Hour)
	return &Communication{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Status:    StatusSent,
		SentAt:    &sentAt,
	}
}

func TestApplyDeliveryEventUpgrades(t *testing.T) {
	comm := sentCommunication()
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, comm.ID).Return(comm, nil)
	repo.On("Update", mock.Anything, comm).Return(nil)
	service, recorder := newTestService(repo)

	timestamp := time.Now()
	err := service.ApplyDeliveryEvent(context.Background(), comm.ID, StatusDelivered, timestamp)

	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, comm.Status)
	require.NotNil(t, comm.DeliveredAt)
	assert.Equal(t, timestamp, *comm.DeliveredAt)
	recorder.AssertCalled(t, "Record", mock.Anything, comm.CompanyID, (*uuid.UUID)(nil),
		audit.EntityCommunication, comm.ID.String(), "delivery_status_updated", mock.Anything)
}

func TestApplyDeliveryEventIgnoresDowngrade(t *testing.T) {
	comm := sentCommunication()
	comm.Status = StatusOpened
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, comm.ID).Return(comm, nil)
	service, _ := newTestService(repo)

	err := service.ApplyDeliveryEvent(context.Background(), comm.ID, StatusDelivered, time.Now())

	// Out-of-order callbacks are dropped silently, never errored.
	require.NoError(t, err)
	assert.Equal(t, StatusOpened, comm.Status)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestApplyDeliveryEventOpenedImpliesDelivered(t *testing.T) {
	comm := sentCommunication()
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, comm.ID).Return(comm, nil)
	repo.On("Update", mock.Anything, comm).Return(nil)
	service, _ := newTestService(repo)

	timestamp := time.Now()
	err := service.ApplyDeliveryEvent(context.Background(), comm.ID, StatusOpened, timestamp)

	require.NoError(t, err)
	assert.Equal(t, StatusOpened, comm.Status)
	require.NotNil(t, comm.DeliveredAt)
	require.NotNil(t, comm.OpenedAt)
}

func TestApplyDeliveryEventRejectsUnknownStatus(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newTestService(repo)

	err := service.ApplyDeliveryEvent(context.Background(), uuid.New(), CommStatus("bounced"), time.Now())

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestApplyDeliveryEventMarksFailed(t *testing.T) {
	comm := sentCommunication()
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, comm.ID).Return(comm, nil)
	repo.On("Update", mock.Anything, comm).Return(nil)
	service, _ := newTestService(repo)

	err := service.ApplyDeliveryEvent(context.Background(), comm.ID, StatusFailed, time.Now())

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, comm.Status)
}
