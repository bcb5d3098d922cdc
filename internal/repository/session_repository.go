package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// SessionRepository handles persistence for attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.course_name, s.course_code, s.department, s.level, s.lecturer_id,
        s.duration_minutes, s.secure_token, s.latitude, s.longitude, s.radius_meters, s.max_students,
        s.status, s.created_at, s.expires_at`

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ExpiresAt = session.CreatedAt.Add(time.Duration(session.DurationMinutes) * time.Minute)
	session.Status = models.SessionStatusActive

	query := `INSERT INTO sessions (id, course_name, course_code, department, level, lecturer_id,
        duration_minutes, secure_token, latitude, longitude, radius_meters, max_students, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := r.db.ExecContext(ctx, query,
		session.ID, session.CourseName, session.CourseCode, session.Department, session.Level,
		session.LecturerID, session.DurationMinutes, session.SecureToken,
		session.Latitude, session.Longitude, session.RadiusMeters, session.MaxStudents,
		session.Status, session.CreatedAt, session.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindByID returns the session with its current attendee count.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionWithCount, error) {
	query := fmt.Sprintf(`SELECT %s,
        (SELECT COUNT(*) FROM attendance_records ar WHERE ar.session_id = s.id) AS attendee_count
        FROM sessions s WHERE s.id = $1`, sessionColumns)
	var session models.SessionWithCount
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	return &session, nil
}

// MarkExpired flips an active session to expired once its window has passed.
// The guard keeps the write idempotent; repeated reads after expiry are no-ops.
func (r *SessionRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `UPDATE sessions SET status = $1 WHERE id = $2 AND status = $3 AND expires_at <= $4`
	res, err := r.db.ExecContext(ctx, query, models.SessionStatusExpired, id, models.SessionStatusActive, now)
	if err != nil {
		return false, fmt.Errorf("mark session %s expired: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark session %s expired: %w", id, err)
	}
	return affected > 0, nil
}

// List returns sessions matching the filter, newest first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionWithCount, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.LecturerID != "" {
		where = append(where, fmt.Sprintf("s.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.CourseCode != "" {
		where = append(where, fmt.Sprintf("s.course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        (SELECT COUNT(*) FROM attendance_records ar WHERE ar.session_id = s.id) AS attendee_count
        FROM sessions s WHERE %s
        ORDER BY s.created_at DESC
        LIMIT %d OFFSET %d`, sessionColumns, whereClause, size, offset)

	var rows []models.SessionWithCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions s WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return rows, total, nil
}

// CountForScope counts a lecturer's sessions, optionally scoped to a course.
func (r *SessionRepository) CountForScope(ctx context.Context, lecturerID, courseCode string) (int, error) {
	query := `SELECT COUNT(*) FROM sessions s WHERE s.lecturer_id = $1 AND ($2 = '' OR s.course_code = $2)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, lecturerID, courseCode); err != nil {
		return 0, fmt.Errorf("count sessions in scope: %w", err)
	}
	return total, nil
}

// Delete removes a session owned by the lecturer. Attendance records cascade
// at the schema level. Returns false when no owned session matched.
func (r *SessionRepository) Delete(ctx context.Context, id, lecturerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND lecturer_id = $2`, id, lecturerID)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return affected > 0, nil
}
