package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/config"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/export"
	"github.com/classtrack/classtrack-api/pkg/token"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.SessionWithCount, error)
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionWithCount, int, error)
	Delete(ctx context.Context, id, lecturerID string) (bool, error)
}

type sessionAttendanceReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
}

// SessionService owns the session lifecycle: creation, expiring reads,
// listing, deletion and attendance-sheet export.
type SessionService struct {
	repo      sessionRepository
	records   sessionAttendanceReader
	links     *LinkBuilder
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	limits    config.SessionConfig

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, records sessionAttendanceReader, links *LinkBuilder, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, limits config.SessionConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:      repo,
		records:   records,
		links:     links,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		limits:    limits,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Create opens a new attendance window and issues its share link.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest, lecturerID, requestOrigin string) (*dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if s.limits.MaxDurationMinutes > 0 && req.DurationMinutes > s.limits.MaxDurationMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration exceeds the maximum of %d minutes", s.limits.MaxDurationMinutes))
	}
	if req.MaxStudents != nil && s.limits.MaxCapacity > 0 && *req.MaxStudents > s.limits.MaxCapacity {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("capacity exceeds the maximum of %d students", s.limits.MaxCapacity))
	}

	secureToken, err := token.Generate(token.DefaultLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	session := &models.Session{
		CourseName:      req.CourseName,
		CourseCode:      req.CourseCode,
		Department:      req.Department,
		Level:           req.Level,
		LecturerID:      lecturerID,
		DurationMinutes: req.DurationMinutes,
		SecureToken:     secureToken,
		MaxStudents:     req.MaxStudents,
	}
	if req.Location != nil {
		session.Latitude = &req.Location.Latitude
		session.Longitude = &req.Location.Longitude
		session.RadiusMeters = &req.Location.RadiusMeters
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.metrics.RecordSessionCreated()
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("course_code", session.CourseCode),
		zap.String("lecturer_id", lecturerID),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return s.ownerView(models.SessionWithCount{Session: *session}, requestOrigin), nil
}

// Get returns a session by id, lazily flipping it to expired once its window
// has passed. Expired sessions are still found; NotFound means no record.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionWithCount, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	now := time.Now().UTC()
	if session.Status == models.SessionStatusActive && session.ExpiredAt(now) {
		if _, err := s.repo.MarkExpired(ctx, session.ID, now); err != nil {
			// The derived status below is still correct; the persisted flip
			// retries on the next read.
			s.logger.Warn("failed to persist session expiry", zap.String("session_id", session.ID), zap.Error(err))
		}
		session.Status = models.SessionStatusExpired
	}
	return session, nil
}

// GetOwned returns a session with the owning lecturer's view, share link included.
func (s *SessionService) GetOwned(ctx context.Context, id, lecturerID, requestOrigin string) (*dto.SessionResponse, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.LecturerID != lecturerID {
		return nil, appErrors.ErrForbidden
	}
	return s.ownerView(*session, requestOrigin), nil
}

// List returns the lecturer's sessions, newest first.
func (s *SessionService) List(ctx context.Context, lecturerID, courseCode, requestOrigin string, page, pageSize int) ([]dto.SessionResponse, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	filter := models.SessionFilter{LecturerID: lecturerID, CourseCode: courseCode, Page: page, PageSize: pageSize}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := time.Now().UTC()
	items := make([]dto.SessionResponse, len(rows))
	for i, row := range rows {
		if row.Status == models.SessionStatusActive && row.ExpiredAt(now) {
			if _, err := s.repo.MarkExpired(ctx, row.ID, now); err != nil {
				s.logger.Warn("failed to persist session expiry", zap.String("session_id", row.ID), zap.Error(err))
			}
			row.Status = models.SessionStatusExpired
		}
		items[i] = *s.ownerView(row, requestOrigin)
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return items, pagination, nil
}

// Delete removes a session owned by the lecturer.
func (s *SessionService) Delete(ctx context.Context, id, lecturerID string) error {
	deleted, err := s.repo.Delete(ctx, id, lecturerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	if !deleted {
		return appErrors.ErrSessionNotFound
	}
	s.logger.Info("session deleted", zap.String("session_id", id), zap.String("lecturer_id", lecturerID))
	return nil
}

// ExportResult carries a rendered attendance sheet.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the session's attendance sheet as CSV or PDF.
func (s *SessionService) Export(ctx context.Context, id, lecturerID, format string) (*ExportResult, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.LecturerID != lecturerID {
		return nil, appErrors.ErrForbidden
	}

	records, err := s.records.ListBySession(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}

	data := export.Dataset{
		Headers: []string{"Registration No", "Full Name", "Department", "Level", "Submitted At"},
		Rows:    make([]map[string]string, len(records)),
	}
	for i, record := range records {
		data.Rows[i] = map[string]string{
			"Registration No": record.RegistrationNumber,
			"Full Name":       record.FullName,
			"Department":      record.Department,
			"Level":           record.Level,
			"Submitted At":    record.SubmittedAt.UTC().Format(time.RFC3339),
		}
	}

	switch format {
	case "", "csv":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("attendance-%s.csv", session.CourseCode)}, nil
	case "pdf":
		title := fmt.Sprintf("Attendance - %s %s", session.CourseCode, session.CourseName)
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("attendance-%s.pdf", session.CourseCode)}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

func (s *SessionService) ownerView(session models.SessionWithCount, requestOrigin string) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		Session:       session.Session,
		SecureToken:   session.SecureToken,
		AttendeeCount: session.AttendeeCount,
	}
	if s.links != nil {
		resp.ShareLink = s.links.AttendanceLink(requestOrigin, session.ID, session.SecureToken)
	}
	return resp
}
