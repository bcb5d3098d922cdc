package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/geo"
	"github.com/classtrack/classtrack-api/pkg/token"
)

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.SessionWithCount, error)
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
}

type attendanceRecordRepository interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

// AnalyticsInvalidator is notified after an accepted submission so cached
// statistics for the session's lecturer can be refreshed.
type AnalyticsInvalidator interface {
	OnSubmission(lecturerID, courseCode string)
}

// AttendanceService validates and records student submissions. The checks run
// in a fixed order and the first failure wins: existence, token, expiry,
// capacity, registration format, geofence, uniqueness.
type AttendanceService struct {
	sessions  attendanceSessionReader
	records   attendanceRecordRepository
	analytics AnalyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(sessions attendanceSessionReader, records attendanceRecordRepository, analytics AnalyticsInvalidator, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{sessions: sessions, records: records, analytics: analytics, validator: validate, logger: logger, metrics: metrics}
	svc.validator.RegisterValidation("regno", func(fl validator.FieldLevel) bool {
		return models.ValidRegistrationNumber(fl.Field().String())
	})
	return svc
}

// Submit runs the validation pipeline and appends a record on success.
func (s *AttendanceService) Submit(ctx context.Context, req dto.SubmitAttendanceRequest) (*models.AttendanceRecord, error) {
	record, err := s.submit(ctx, req)
	if err != nil {
		s.metrics.RecordSubmission(appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordSubmission("accepted")
	return record, nil
}

func (s *AttendanceService) submit(ctx context.Context, req dto.SubmitAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if !token.Match(session.SecureToken, req.SecureToken) {
		return nil, appErrors.ErrInvalidToken
	}

	now := time.Now().UTC()
	if session.Status == models.SessionStatusExpired || session.ExpiredAt(now) {
		if session.Status == models.SessionStatusActive {
			if _, err := s.sessions.MarkExpired(ctx, session.ID, now); err != nil {
				s.logger.Warn("failed to persist session expiry", zap.String("session_id", session.ID), zap.Error(err))
			}
		}
		return nil, appErrors.ErrSessionExpired
	}

	if session.MaxStudents != nil && session.AttendeeCount >= *session.MaxStudents {
		return nil, appErrors.ErrSessionFull
	}

	if err := s.validator.Var(req.RegistrationNumber, "regno"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration number must be at least 4 characters with a letter and a digit (letters, digits, -, / and _ only)")
	}

	if fence := session.GeoFence(); fence != nil {
		if req.Latitude == nil || req.Longitude == nil {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange, "this session requires your location")
		}
		submitted := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if !geo.WithinRadius(fence.Center(), submitted, fence.RadiusMeters) {
			return nil, appErrors.ErrOutOfRange
		}
	}

	record := &models.AttendanceRecord{
		SessionID:          session.ID,
		RegistrationNumber: req.RegistrationNumber,
		FullName:           req.FullName,
		Department:         req.Department,
		Level:              req.Level,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		SubmittedAt:        now,
	}
	stored, err := s.records.Insert(ctx, record)
	if err != nil {
		// The unique index on (session_id, registration_number) is the only
		// arbiter under concurrent submissions; a swallowed insert means the
		// student already has a record.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrDuplicate
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.logger.Info("attendance recorded",
		zap.String("session_id", session.ID),
		zap.String("registration_number", stored.RegistrationNumber),
	)
	if s.analytics != nil {
		s.analytics.OnSubmission(session.LecturerID, session.CourseCode)
	}
	return stored, nil
}
