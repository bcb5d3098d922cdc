package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/models"
)

type analyticsServiceMock struct {
	report   *models.AttendanceStatsReport
	cacheHit bool
	err      error

	lastLecturerID string
	lastCourseCode string
}

func (m *analyticsServiceMock) Stats(_ context.Context, lecturerID, courseCode string) (*models.AttendanceStatsReport, bool, error) {
	m.lastLecturerID = lecturerID
	m.lastCourseCode = courseCode
	return m.report, m.cacheHit, m.err
}

func TestAnalyticsHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &analyticsServiceMock{
		report:   &models.AttendanceStatsReport{LecturerID: "lect-1", TotalSessions: 4},
		cacheHit: true,
	}
	handler := NewAnalyticsHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/analytics?courseCode=CSC401", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, lecturerClaims())

	handler.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lect-1", mockSvc.lastLecturerID)
	assert.Equal(t, "CSC401", mockSvc.lastCourseCode)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"total_sessions":4`)
}

func TestAnalyticsHandlerStatsRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyticsHandler(&analyticsServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/analytics", nil)
	c.Request = req

	handler.Stats(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
