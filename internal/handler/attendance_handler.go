package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type attendanceService interface {
	Submit(ctx context.Context, req dto.SubmitAttendanceRequest) (*models.AttendanceRecord, error)
}

// AttendanceHandler exposes the public submission endpoint.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Submit godoc
// @Summary Submit attendance for a session
// @Description Records a student's attendance. The session token may travel in
// @Description the body or as the share link's `token` query parameter.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param token query string false "Session token from the share link"
// @Param payload body dto.SubmitAttendanceRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /public/attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	if req.SecureToken == "" {
		req.SecureToken = c.Query("token")
	}

	record, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
