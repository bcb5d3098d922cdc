package models

import (
	"time"

	"github.com/classtrack/classtrack-api/pkg/geo"
)

// SessionStatus marks whether a session still accepts submissions.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusExpired SessionStatus = "expired"
)

// GeoFence restricts submissions to a radius around the lecture venue.
type GeoFence struct {
	Latitude     float64 `db:"latitude" json:"latitude"`
	Longitude    float64 `db:"longitude" json:"longitude"`
	RadiusMeters float64 `db:"radius_meters" json:"radius_meters"`
}

// Center returns the fence origin as a geo point.
func (f GeoFence) Center() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Session is a time-boxed attendance window tied to one course instance.
// ExpiresAt is fixed at creation (createdAt + duration) and never changes;
// the status column flips to expired lazily on read once the instant passes.
type Session struct {
	ID              string        `db:"id" json:"id"`
	CourseName      string        `db:"course_name" json:"course_name"`
	CourseCode      string        `db:"course_code" json:"course_code"`
	Department      string        `db:"department" json:"department"`
	Level           string        `db:"level" json:"level"`
	LecturerID      string        `db:"lecturer_id" json:"lecturer_id"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	SecureToken     string        `db:"secure_token" json:"-"`
	Latitude        *float64      `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64      `db:"longitude" json:"longitude,omitempty"`
	RadiusMeters    *float64      `db:"radius_meters" json:"radius_meters,omitempty"`
	MaxStudents     *int          `db:"max_students" json:"max_students,omitempty"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt       time.Time     `db:"expires_at" json:"expires_at"`
}

// GeoFence assembles the optional fence; nil when the session has none.
func (s *Session) GeoFence() *GeoFence {
	if s.Latitude == nil || s.Longitude == nil || s.RadiusMeters == nil {
		return nil
	}
	return &GeoFence{Latitude: *s.Latitude, Longitude: *s.Longitude, RadiusMeters: *s.RadiusMeters}
}

// ExpiredAt reports whether the session is past its window at the given instant.
// The boundary instant itself counts as expired (active iff now < expiresAt).
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionWithCount pairs a session with its current attendee count.
type SessionWithCount struct {
	Session
	AttendeeCount int `db:"attendee_count" json:"attendee_count"`
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	LecturerID string
	CourseCode string
	Page       int
	PageSize   int
}
