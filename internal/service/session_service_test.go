package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/config"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type fakeSessionRepo struct {
	created   *models.Session
	session   *models.SessionWithCount
	findErr   error
	listRows  []models.SessionWithCount
	listTotal int
	deleted   bool
	markedIDs []string
}

func (f *fakeSessionRepo) Create(_ context.Context, session *models.Session) error {
	session.ID = "sess-9"
	session.Status = models.SessionStatusActive
	session.CreatedAt = time.Now().UTC()
	session.ExpiresAt = session.CreatedAt.Add(time.Duration(session.DurationMinutes) * time.Minute)
	f.created = session
	return nil
}

func (f *fakeSessionRepo) FindByID(_ context.Context, _ string) (*models.SessionWithCount, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.session, nil
}

func (f *fakeSessionRepo) MarkExpired(_ context.Context, id string, _ time.Time) (bool, error) {
	f.markedIDs = append(f.markedIDs, id)
	return true, nil
}

func (f *fakeSessionRepo) List(_ context.Context, _ models.SessionFilter) ([]models.SessionWithCount, int, error) {
	return f.listRows, f.listTotal, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, _, _ string) (bool, error) {
	return f.deleted, nil
}

type fakeAttendanceLister struct {
	records []models.AttendanceRecord
}

func (f *fakeAttendanceLister) ListBySession(_ context.Context, _ string) ([]models.AttendanceRecord, error) {
	return f.records, nil
}

func newSessionServiceForTest(repo *fakeSessionRepo, records *fakeAttendanceLister) *SessionService {
	links := NewLinkBuilder(config.LinkConfig{PublicBaseURL: "https://classtrack.example"})
	limits := config.SessionConfig{MaxDurationMinutes: 480, MaxCapacity: 1000}
	return NewSessionService(repo, records, links, nil, nil, nil, limits)
}

func validCreateRequest() dto.CreateSessionRequest {
	return dto.CreateSessionRequest{
		CourseName:      "Distributed Systems",
		CourseCode:      "CSC401",
		Department:      "Computer Science",
		Level:           "400",
		DurationMinutes: 60,
	}
}

func TestCreateSessionIssuesTokenAndShareLink(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	resp, err := svc.Create(context.Background(), validCreateRequest(), "lect-1", "http://localhost:8080")

	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Len(t, resp.SecureToken, 64)
	assert.True(t, strings.HasPrefix(resp.ShareLink, "https://classtrack.example/attendance/sess-9?token="))
	assert.Equal(t, "lect-1", repo.created.LecturerID)
	assert.WithinDuration(t, repo.created.CreatedAt.Add(60*time.Minute), repo.created.ExpiresAt, time.Second)
}

func TestCreateSessionRejectsExcessiveDuration(t *testing.T) {
	svc := newSessionServiceForTest(&fakeSessionRepo{}, &fakeAttendanceLister{})

	req := validCreateRequest()
	req.DurationMinutes = 481
	_, err := svc.Create(context.Background(), req, "lect-1", "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateSessionRejectsExcessiveCapacity(t *testing.T) {
	svc := newSessionServiceForTest(&fakeSessionRepo{}, &fakeAttendanceLister{})

	req := validCreateRequest()
	capacity := 1001
	req.MaxStudents = &capacity
	_, err := svc.Create(context.Background(), req, "lect-1", "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateSessionStoresGeofence(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	req := validCreateRequest()
	req.Location = &dto.SessionLocation{Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 150}
	_, err := svc.Create(context.Background(), req, "lect-1", "")

	require.NoError(t, err)
	require.NotNil(t, repo.created.Latitude)
	assert.Equal(t, 6.5244, *repo.created.Latitude)
	assert.Equal(t, 150.0, *repo.created.RadiusMeters)
}

func TestGetLazilyExpiresSession(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:        "sess-9",
		Status:    models.SessionStatusActive,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}}}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	session, err := svc.Get(context.Background(), "sess-9")

	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, session.Status)
	assert.Equal(t, []string{"sess-9"}, repo.markedIDs)
}

func TestGetNotFound(t *testing.T) {
	repo := &fakeSessionRepo{findErr: sql.ErrNoRows}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetOwnedRejectsOtherLecturer(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:         "sess-9",
		LecturerID: "lect-1",
		Status:     models.SessionStatusActive,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}}}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	_, err := svc.GetOwned(context.Background(), "sess-9", "lect-2", "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteNotOwnedReportsNotFound(t *testing.T) {
	repo := &fakeSessionRepo{deleted: false}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	err := svc.Delete(context.Background(), "sess-9", "lect-2")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCSV(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:         "sess-9",
		CourseCode: "CSC401",
		CourseName: "Distributed Systems",
		LecturerID: "lect-1",
		Status:     models.SessionStatusActive,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}}}
	records := &fakeAttendanceLister{records: []models.AttendanceRecord{
		{RegistrationNumber: "CSC/2021/014", FullName: "Ada Obi", Department: "Computer Science", Level: "400", SubmittedAt: time.Now().UTC()},
	}}
	svc := newSessionServiceForTest(repo, records)

	result, err := svc.Export(context.Background(), "sess-9", "lect-1", "csv")

	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "attendance-CSC401.csv", result.Filename)
	content := string(result.Content)
	assert.Contains(t, content, "Registration No")
	assert.Contains(t, content, "CSC/2021/014")
}

func TestExportPDF(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:         "sess-9",
		CourseCode: "CSC401",
		CourseName: "Distributed Systems",
		LecturerID: "lect-1",
		Status:     models.SessionStatusActive,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}}}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	result, err := svc.Export(context.Background(), "sess-9", "lect-1", "pdf")

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:         "sess-9",
		LecturerID: "lect-1",
		Status:     models.SessionStatusActive,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}}}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	_, err := svc.Export(context.Background(), "sess-9", "lect-1", "xlsx")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportByNonOwnerForbidden(t *testing.T) {
	repo := &fakeSessionRepo{session: &models.SessionWithCount{Session: models.Session{
		ID:         "sess-9",
		LecturerID: "lect-1",
		Status:     models.SessionStatusActive,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}}}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	_, err := svc.Export(context.Background(), "sess-9", "lect-2", "csv")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListFlipsExpiredRows(t *testing.T) {
	repo := &fakeSessionRepo{
		listRows: []models.SessionWithCount{
			{Session: models.Session{ID: "sess-1", Status: models.SessionStatusActive, ExpiresAt: time.Now().UTC().Add(time.Hour)}},
			{Session: models.Session{ID: "sess-2", Status: models.SessionStatusActive, ExpiresAt: time.Now().UTC().Add(-time.Hour)}},
		},
		listTotal: 2,
	}
	svc := newSessionServiceForTest(repo, &fakeAttendanceLister{})

	items, pagination, err := svc.List(context.Background(), "lect-1", "", "", 1, 20)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.SessionStatusActive, items[0].Status)
	assert.Equal(t, models.SessionStatusExpired, items[1].Status)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, []string{"sess-2"}, repo.markedIDs)
}
