package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/middleware"
	"github.com/itops-hq/asset-custody-api/internal/models"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type approvalServiceMock struct {
	decideResp   interface{}
	decideErr    error
	decideCalled bool
	lastReq      dto.DecisionRequest
}

func (m *approvalServiceMock) Decide(ctx context.Context, req dto.DecisionRequest, actor *models.JWTClaims) (interface{}, error) {
	m.decideCalled = true
	m.lastReq = req
	return m.decideResp, m.decideErr
}

type pendingServiceMock struct {
	adminResp   *dto.AdminPendingSummary
	userResp    *dto.UserPendingSummary
	adminCalled bool
	userCalled  bool
	lastUserID  string
}

func (m *pendingServiceMock) AdminSummary(ctx context.Context) (*dto.AdminPendingSummary, error) {
	m.adminCalled = true
	return m.adminResp, nil
}

func (m *pendingServiceMock) UserSummary(ctx context.Context, userID string) (*dto.UserPendingSummary, error) {
	m.userCalled = true
	m.lastUserID = userID
	return m.userResp, nil
}

func TestApprovalHandlerDecide(t *testing.T) {
	gin.SetMode(gin.TestMode)
	approved := true
	mockSvc := &approvalServiceMock{
		decideResp: &models.TransferRequest{ID: "req-1", Status: models.StatusApproved},
	}
	handler := NewApprovalHandler(mockSvc, &pendingServiceMock{})

	payload, _ := json.Marshal(dto.DecisionRequest{
		RequestID:   "req-1",
		RequestType: models.RequestTypeTransfer,
		Approved:    &approved,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/approvals/decide", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Decide(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.decideCalled)
	assert.Equal(t, "req-1", mockSvc.lastReq.RequestID)
	assert.Equal(t, models.RequestTypeTransfer, mockSvc.lastReq.RequestType)
}

func TestApprovalHandlerDecideInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{}
	handler := NewApprovalHandler(mockSvc, &pendingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/approvals/decide", bytes.NewBufferString(`{"request_id":"req-1"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Decide(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.decideCalled)
}

func TestApprovalHandlerDecideServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	approved := false
	mockSvc := &approvalServiceMock{
		decideErr: appErrors.Clone(appErrors.ErrInvalidState, "transfer already processed"),
	}
	handler := NewApprovalHandler(mockSvc, &pendingServiceMock{})

	payload, _ := json.Marshal(dto.DecisionRequest{
		RequestID:   "req-1",
		RequestType: models.RequestTypeTransfer,
		Approved:    &approved,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/approvals/decide", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Decide(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestApprovalHandlerPendingSummaryAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockPending := &pendingServiceMock{
		adminResp: &dto.AdminPendingSummary{PendingTransfers: 2, TotalPending: 2},
	}
	handler := NewApprovalHandler(&approvalServiceMock{}, mockPending)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/approvals/pending/summary", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.PendingSummary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockPending.adminCalled)
	assert.False(t, mockPending.userCalled)
	assert.Contains(t, w.Body.String(), "total_pending")
}

func TestApprovalHandlerPendingSummaryUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockPending := &pendingServiceMock{
		userResp: &dto.UserPendingSummary{AwaitingConfirmation: 3},
	}
	handler := NewApprovalHandler(&approvalServiceMock{}, mockPending)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/approvals/pending/summary", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})

	handler.PendingSummary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockPending.userCalled)
	assert.Equal(t, "user-1", mockPending.lastUserID)
	assert.Contains(t, w.Body.String(), "awaiting_confirmation")
}

func TestApprovalHandlerPendingSummaryUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&approvalServiceMock{}, &pendingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/approvals/pending/summary", nil)
	c.Request = req

	handler.PendingSummary(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
