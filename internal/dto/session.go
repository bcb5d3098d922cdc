package dto

import (
	"time"

	"github.com/classtrack/classtrack-api/internal/models"
)

// SessionLocation carries the optional geofence on session creation.
type SessionLocation struct {
	Latitude     float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusMeters float64 `json:"radiusMeters" validate:"required,gt=0"`
}

// CreateSessionRequest defines the payload for opening an attendance window.
type CreateSessionRequest struct {
	CourseName      string           `json:"courseName" validate:"required"`
	CourseCode      string           `json:"courseCode" validate:"required"`
	Department      string           `json:"department" validate:"required"`
	Level           string           `json:"level" validate:"required"`
	DurationMinutes int              `json:"durationMinutes" validate:"required,gt=0"`
	Location        *SessionLocation `json:"location,omitempty"`
	MaxStudents     *int             `json:"maxStudents,omitempty" validate:"omitempty,gt=0"`
}

// SessionResponse is the lecturer-facing view, including the share link and
// token. Only ever returned to the owning lecturer.
type SessionResponse struct {
	models.Session
	SecureToken   string `json:"secure_token"`
	ShareLink     string `json:"share_link"`
	AttendeeCount int    `json:"attendee_count"`
}

// PublicSessionResponse is the student-facing view behind the share link.
// It never exposes the secure token.
type PublicSessionResponse struct {
	ID              string                `json:"id"`
	CourseName      string                `json:"course_name"`
	CourseCode      string                `json:"course_code"`
	Department      string                `json:"department"`
	Level           string                `json:"level"`
	Status          models.SessionStatus  `json:"status"`
	ExpiresAt       time.Time             `json:"expires_at"`
	RequiresGeo     bool                  `json:"requires_geolocation"`
	AttendeeCount   int                   `json:"attendee_count"`
	MaxStudents     *int                  `json:"max_students,omitempty"`
	DurationMinutes int                   `json:"duration_minutes"`
}

// PublicSessionFrom projects the shareable subset of a session.
func PublicSessionFrom(s models.SessionWithCount) PublicSessionResponse {
	return PublicSessionResponse{
		ID:              s.ID,
		CourseName:      s.CourseName,
		CourseCode:      s.CourseCode,
		Department:      s.Department,
		Level:           s.Level,
		Status:          s.Status,
		ExpiresAt:       s.ExpiresAt,
		RequiresGeo:     s.GeoFence() != nil,
		AttendeeCount:   s.AttendeeCount,
		MaxStudents:     s.MaxStudents,
		DurationMinutes: s.DurationMinutes,
	}
}
