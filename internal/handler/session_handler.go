package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, req dto.CreateSessionRequest, lecturerID, requestOrigin string) (*dto.SessionResponse, error)
	Get(ctx context.Context, id string) (*models.SessionWithCount, error)
	GetOwned(ctx context.Context, id, lecturerID, requestOrigin string) (*dto.SessionResponse, error)
	List(ctx context.Context, lecturerID, courseCode, requestOrigin string, page, pageSize int) ([]dto.SessionResponse, *models.Pagination, error)
	Delete(ctx context.Context, id, lecturerID string) error
	Export(ctx context.Context, id, lecturerID, format string) (*service.ExportResult, error)
}

// SessionHandler exposes session lifecycle endpoints.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create godoc
// @Summary Open an attendance session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.service.Create(c.Request.Context(), req, claims.LecturerID, requestOrigin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List godoc
// @Summary List the lecturer's sessions
// @Tags Sessions
// @Produce json
// @Param course_code query string false "Course code filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, pagination, err := h.service.List(c.Request.Context(), claims.LecturerID, c.Query("course_code"), requestOrigin(c), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one of the lecturer's sessions, share link included
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.GetOwned(c.Request.Context(), c.Param("id"), claims.LecturerID, requestOrigin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// GetPublic godoc
// @Summary Get the student-facing view of a session
// @Description Serves the share link's landing data. Never exposes the token.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/sessions/{id} [get]
func (h *SessionHandler) GetPublic(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PublicSessionFrom(*session), nil)
}

// Delete godoc
// @Summary Delete a session and its records
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.LecturerID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the session's attendance sheet
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Export(c.Request.Context(), c.Param("id"), claims.LecturerID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
