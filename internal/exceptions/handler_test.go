package exceptions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"certshield/coi-backend/internal/auth"
	"certshield/coi-backend/pkg/apperrors"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req CreateRequest) (*Exception, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID) (*Exception, error) {
	args := m.Called(ctx, id, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) Reject(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) Resolve(ctx context.Context, id uuid.UUID, resolutionType, notes string, actorID uuid.UUID) (*Exception, error) {
	args := m.Called(ctx, id, resolutionType, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) Close(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Exception, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id uuid.UUID) (*Exception, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Exception), args.Error(1)
}

func (m *MockService) List(ctx context.Context, companyID uuid.UUID, limit int) ([]Exception, error) {
	args := m.Called(ctx, companyID, limit)
	return args.Get(0).([]Exception), args.Error(1)
}

func (m *MockService) ResolveAllActive(ctx context.Context, companyID, projectID, subcontractorID uuid.UUID, verificationID uuid.UUID) (int, error) {
	args := m.Called(ctx, companyID, projectID, subcontractorID, verificationID)
	return args.Int(0), args.Error(1)
}

func (m *MockService) ExpireSweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newTestRouter(service Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		auth.SetIdentity(c, uuid.New(), uuid.New(), auth.RoleProjectManager)
	})
	NewHandler(service).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestCreateHandlerReturnsConflictForSecondActive(t *testing.T) {
	service := new(MockService)
	service.On("Create", mock.Anything, mock.AnythingOfType("exceptions.CreateRequest")).
		Return(nil, &apperrors.ConflictError{Resource: "exception", Message: "an active exception already exists for this assignment"})

	body, _ := json.Marshal(gin.H{
		"project_id":       uuid.New(),
		"subcontractor_id": uuid.New(),
		"issue_summary":    "GL aggregate below required limit",
		"reason":           "renewal certificate in underwriting",
		"risk_level":       "medium",
		"expiration_type":  "until_resolved",
		"auto_approve":     true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exceptions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "active exception already exists")
}

func TestApproveHandlerReturnsConflictForActiveSibling(t *testing.T) {
	service := new(MockService)
	id := uuid.New()
	service.On("Approve", mock.Anything, id, mock.AnythingOfType("uuid.UUID")).
		Return(nil, &apperrors.ConflictError{Resource: "exception", Message: "an active exception already exists for this assignment"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exceptions/"+id.String()+"/approve", nil)
	rec := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "active exception already exists")
}
