package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type stubSessionReader struct {
	session   *models.SessionWithCount
	findErr   error
	markedIDs []string
}

func (s *stubSessionReader) FindByID(_ context.Context, _ string) (*models.SessionWithCount, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.session, nil
}

func (s *stubSessionReader) MarkExpired(_ context.Context, id string, _ time.Time) (bool, error) {
	s.markedIDs = append(s.markedIDs, id)
	return true, nil
}

type stubRecordRepo struct {
	insertErr error
	inserted  *models.AttendanceRecord
}

func (s *stubRecordRepo) Insert(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.inserted = record
	return record, nil
}

type stubAnalytics struct {
	lecturerIDs []string
	courseCodes []string
}

func (s *stubAnalytics) OnSubmission(lecturerID, courseCode string) {
	s.lecturerIDs = append(s.lecturerIDs, lecturerID)
	s.courseCodes = append(s.courseCodes, courseCode)
}

func activeSession() *models.SessionWithCount {
	return &models.SessionWithCount{
		Session: models.Session{
			ID:          "sess-1",
			CourseName:  "Distributed Systems",
			CourseCode:  "CSC401",
			LecturerID:  "lect-1",
			SecureToken: "a1b2c3",
			Status:      models.SessionStatusActive,
			CreatedAt:   time.Now().UTC().Add(-5 * time.Minute),
			ExpiresAt:   time.Now().UTC().Add(30 * time.Minute),
		},
	}
}

func validSubmission() dto.SubmitAttendanceRequest {
	return dto.SubmitAttendanceRequest{
		SessionID:          "sess-1",
		SecureToken:        "a1b2c3",
		FullName:           "Ada Obi",
		RegistrationNumber: "CSC/2021/014",
		Department:         "Computer Science",
		Level:              "400",
	}
}

func newAttendanceServiceForTest(sessions *stubSessionReader, records *stubRecordRepo, analytics *stubAnalytics) *AttendanceService {
	// Avoid storing a typed-nil *stubAnalytics in the interface: the service's
	// nil check would pass and calling the stub would panic.
	var invalidator AnalyticsInvalidator
	if analytics != nil {
		invalidator = analytics
	}
	return NewAttendanceService(sessions, records, invalidator, nil, nil, nil)
}

func TestSubmitSessionNotFound(t *testing.T) {
	svc := newAttendanceServiceForTest(&stubSessionReader{findErr: sql.ErrNoRows}, &stubRecordRepo{}, nil)

	_, err := svc.Submit(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmitInvalidToken(t *testing.T) {
	svc := newAttendanceServiceForTest(&stubSessionReader{session: activeSession()}, &stubRecordRepo{}, nil)

	// A missing token is a token failure, not a payload failure: the session
	// lookup still runs first.
	for _, tok := range []string{"wrong", ""} {
		req := validSubmission()
		req.SecureToken = tok
		_, err := svc.Submit(context.Background(), req)

		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
	}
}

func TestSubmitExpiredSessionMarksExpiry(t *testing.T) {
	session := activeSession()
	session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	sessions := &stubSessionReader{session: session}
	svc := newAttendanceServiceForTest(sessions, &stubRecordRepo{}, nil)

	_, err := svc.Submit(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"sess-1"}, sessions.markedIDs)
}

func TestSubmitTokenCheckedBeforeExpiry(t *testing.T) {
	session := activeSession()
	session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	svc := newAttendanceServiceForTest(&stubSessionReader{session: session}, &stubRecordRepo{}, nil)

	req := validSubmission()
	req.SecureToken = "wrong"
	_, err := svc.Submit(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestSubmitSessionFull(t *testing.T) {
	session := activeSession()
	capacity := 30
	session.MaxStudents = &capacity
	session.AttendeeCount = 30
	svc := newAttendanceServiceForTest(&stubSessionReader{session: session}, &stubRecordRepo{}, nil)

	_, err := svc.Submit(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionFull.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsMalformedRegistrationNumber(t *testing.T) {
	svc := newAttendanceServiceForTest(&stubSessionReader{session: activeSession()}, &stubRecordRepo{}, nil)

	for _, regno := range []string{"abc", "12345", "letters", "CSC 2021"} {
		req := validSubmission()
		req.RegistrationNumber = regno
		_, err := svc.Submit(context.Background(), req)

		require.Error(t, err, "regno %q should be rejected", regno)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestSubmitGeofenceRequiresLocation(t *testing.T) {
	session := activeSession()
	lat, lng, radius := 6.5244, 3.3792, 100.0
	session.Latitude, session.Longitude, session.RadiusMeters = &lat, &lng, &radius
	svc := newAttendanceServiceForTest(&stubSessionReader{session: session}, &stubRecordRepo{}, nil)

	_, err := svc.Submit(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
}

func TestSubmitGeofenceRejectsDistantLocation(t *testing.T) {
	session := activeSession()
	lat, lng, radius := 6.5244, 3.3792, 100.0
	session.Latitude, session.Longitude, session.RadiusMeters = &lat, &lng, &radius
	svc := newAttendanceServiceForTest(&stubSessionReader{session: session}, &stubRecordRepo{}, nil)

	req := validSubmission()
	farLat, farLng := 6.6, 3.5 // kilometres away
	req.Latitude, req.Longitude = &farLat, &farLng
	_, err := svc.Submit(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
}

func TestSubmitDuplicate(t *testing.T) {
	svc := newAttendanceServiceForTest(&stubSessionReader{session: activeSession()}, &stubRecordRepo{insertErr: sql.ErrNoRows}, nil)

	_, err := svc.Submit(context.Background(), validSubmission())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestSubmitSuccessNotifiesAnalytics(t *testing.T) {
	session := activeSession()
	lat, lng, radius := 6.5244, 3.3792, 100.0
	session.Latitude, session.Longitude, session.RadiusMeters = &lat, &lng, &radius
	records := &stubRecordRepo{}
	analytics := &stubAnalytics{}
	svc := newAttendanceServiceForTest(&stubSessionReader{session: session}, records, analytics)

	req := validSubmission()
	req.Latitude, req.Longitude = &lat, &lng
	record, err := svc.Submit(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "sess-1", record.SessionID)
	assert.Equal(t, "CSC/2021/014", record.RegistrationNumber)
	assert.False(t, record.SubmittedAt.IsZero())
	assert.Equal(t, []string{"lect-1"}, analytics.lecturerIDs)
	assert.Equal(t, []string{"CSC401"}, analytics.courseCodes)
}

func TestSubmitNoGeofenceSkipsLocationCheck(t *testing.T) {
	records := &stubRecordRepo{}
	svc := newAttendanceServiceForTest(&stubSessionReader{session: activeSession()}, records, nil)

	record, err := svc.Submit(context.Background(), validSubmission())

	require.NoError(t, err)
	assert.Nil(t, record.Latitude)
	assert.Nil(t, record.Longitude)
}
