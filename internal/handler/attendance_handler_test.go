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

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type attendanceServiceMock struct {
	resp    *models.AttendanceRecord
	err     error
	lastReq dto.SubmitAttendanceRequest
}

func (m *attendanceServiceMock) Submit(_ context.Context, req dto.SubmitAttendanceRequest) (*models.AttendanceRecord, error) {
	m.lastReq = req
	return m.resp, m.err
}

func submitPayload() dto.SubmitAttendanceRequest {
	return dto.SubmitAttendanceRequest{
		SessionID:          "sess-1",
		FullName:           "Ada Obi",
		RegistrationNumber: "CSC/2021/014",
		Department:         "Computer Science",
		Level:              "400",
	}
}

func performSubmit(t *testing.T, mockSvc *attendanceServiceMock, url string, payload dto.SubmitAttendanceRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	NewAttendanceHandler(mockSvc).Submit(c)
	return w
}

func TestAttendanceHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{resp: &models.AttendanceRecord{SessionID: "sess-1", RegistrationNumber: "CSC/2021/014"}}

	payload := submitPayload()
	payload.SecureToken = "tok-from-body"
	w := performSubmit(t, mockSvc, "/public/attendance", payload)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok-from-body", mockSvc.lastReq.SecureToken)
}

func TestAttendanceHandlerSubmitTokenFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{resp: &models.AttendanceRecord{}}

	w := performSubmit(t, mockSvc, "/public/attendance?token=tok-from-link", submitPayload())

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok-from-link", mockSvc.lastReq.SecureToken)
}

func TestAttendanceHandlerBodyTokenWinsOverQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{resp: &models.AttendanceRecord{}}

	payload := submitPayload()
	payload.SecureToken = "tok-from-body"
	w := performSubmit(t, mockSvc, "/public/attendance?token=tok-from-link", payload)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok-from-body", mockSvc.lastReq.SecureToken)
}

func TestAttendanceHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/public/attendance", bytes.NewBufferString(`{"sessionId":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	NewAttendanceHandler(&attendanceServiceMock{}).Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerSubmitRejectionStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[int]*appErrors.Error{
		http.StatusNotFound:            appErrors.ErrSessionNotFound,
		http.StatusForbidden:           appErrors.ErrInvalidToken,
		http.StatusGone:                appErrors.ErrSessionExpired,
		http.StatusConflict:            appErrors.ErrDuplicate,
		http.StatusUnprocessableEntity: appErrors.ErrOutOfRange,
	}
	for status, svcErr := range cases {
		w := performSubmit(t, &attendanceServiceMock{err: svcErr}, "/public/attendance", submitPayload())

		require.Equal(t, status, w.Code)
		assert.Contains(t, w.Body.String(), svcErr.Code)
	}
}
