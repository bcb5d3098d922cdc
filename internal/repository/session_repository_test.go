package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_name", "course_code", "department", "level", "lecturer_id",
		"duration_minutes", "secure_token", "latitude", "longitude", "radius_meters",
		"max_students", "status", "created_at", "expires_at", "attendee_count",
	})
}

func TestSessionRepositoryCreateDerivesExpiry(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			sqlmock.AnyArg(), "Algorithms", "CSC301", "Computer Science", "300",
			"lect-1", 15, sqlmock.AnyArg(), nil, nil, nil, nil,
			models.SessionStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{
		CourseName:      "Algorithms",
		CourseCode:      "CSC301",
		Department:      "Computer Science",
		Level:           "300",
		LecturerID:      "lect-1",
		DurationMinutes: 15,
		SecureToken:     "tok",
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, session.CreatedAt.Add(15*time.Minute), session.ExpiresAt)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM sessions s WHERE s\.id = \$1`).
		WithArgs("sess-1").
		WillReturnRows(sessionRows().AddRow(
			"sess-1", "Algorithms", "CSC301", "Computer Science", "300", "lect-1",
			15, "tok", nil, nil, nil, nil, "active", created, created.Add(15*time.Minute), 3,
		))

	session, err := repo.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, 3, session.AttendeeCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryMarkExpired(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE sessions SET status").
		WithArgs(models.SessionStatusExpired, "sess-1", models.SessionStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.MarkExpired(context.Background(), "sess-1", now)
	require.NoError(t, err)
	assert.True(t, flipped)

	// A second read after the flip matches no rows.
	mock.ExpectExec("UPDATE sessions SET status").
		WithArgs(models.SessionStatusExpired, "sess-1", models.SessionStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err = repo.MarkExpired(context.Background(), "sess-1", now)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListNewestFirst(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM sessions s WHERE 1=1 AND s\.lecturer_id = \$1\s+ORDER BY s\.created_at DESC`).
		WithArgs("lect-1").
		WillReturnRows(sessionRows().
			AddRow("sess-2", "Algorithms", "CSC301", "CS", "300", "lect-1", 15, "tok2", nil, nil, nil, nil, "active", created, created.Add(15*time.Minute), 0).
			AddRow("sess-1", "Algorithms", "CSC301", "CS", "300", "lect-1", 15, "tok1", nil, nil, nil, nil, "expired", created.Add(-time.Hour), created.Add(-45*time.Minute), 12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sessions s WHERE 1=1 AND s\.lecturer_id = \$1`).
		WithArgs("lect-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows, total, err := repo.List(context.Background(), models.SessionFilter{LecturerID: "lect-1"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "sess-2", rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteOwnership(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("sess-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "sess-1", "someone-else")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
