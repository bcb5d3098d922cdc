package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert appends a record for a session. The attendance_records table carries
// a unique index on (session_id, registration_number); a conflicting insert
// returns sql.ErrNoRows, which is how concurrent duplicate submissions lose.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	query := `INSERT INTO attendance_records (id, session_id, registration_number, full_name, department, level, latitude, longitude, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id, registration_number) DO NOTHING
RETURNING id, session_id, registration_number, full_name, department, level, latitude, longitude, submitted_at`
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.SessionID, record.RegistrationNumber, record.FullName,
		record.Department, record.Level, record.Latitude, record.Longitude, record.SubmittedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("insert attendance record: %w", err)
	}
	return &stored, nil
}

// CountBySession returns the number of accepted submissions for a session.
func (r *AttendanceRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendance_records WHERE session_id = $1`, sessionID); err != nil {
		return 0, fmt.Errorf("count attendance for session %s: %w", sessionID, err)
	}
	return count, nil
}

// ListBySession returns records in submission order.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, session_id, registration_number, full_name, department, level, latitude, longitude, submitted_at
FROM attendance_records
WHERE session_id = $1
ORDER BY submitted_at ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance for session %s: %w", sessionID, err)
	}
	return rows, nil
}

// RowsForScope returns the raw (session, student) pairs analytics aggregates
// over, across a lecturer's sessions and optionally one course.
func (r *AttendanceRepository) RowsForScope(ctx context.Context, lecturerID, courseCode string) ([]models.SessionAttendanceRow, error) {
	query := `SELECT ar.session_id, ar.registration_number, ar.full_name, ar.department, ar.level
FROM attendance_records ar
JOIN sessions s ON s.id = ar.session_id
WHERE s.lecturer_id = $1 AND ($2 = '' OR s.course_code = $2)
ORDER BY ar.submitted_at ASC`
	var rows []models.SessionAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, lecturerID, courseCode); err != nil {
		return nil, fmt.Errorf("attendance rows for lecturer %s: %w", lecturerID, err)
	}
	return rows, nil
}
