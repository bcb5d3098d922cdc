package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type analyticsService interface {
	Stats(ctx context.Context, lecturerID, courseCode string) (*models.AttendanceStatsReport, bool, error)
}

// AnalyticsHandler exposes per-student attendance statistics.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler builds a new handler.
func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Stats godoc
// @Summary Per-student attendance percentages across the lecturer's sessions
// @Tags Analytics
// @Produce json
// @Param courseCode query string false "Restrict to one course"
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	report, cacheHit, err := h.service.Stats(c.Request.Context(), claims.LecturerID, c.Query("courseCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, report, nil, meta)
}
