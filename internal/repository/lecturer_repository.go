package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// LecturerRepository handles lecturer accounts and their refresh tokens.
type LecturerRepository struct {
	db *sqlx.DB
}

// NewLecturerRepository constructs the repository.
func NewLecturerRepository(db *sqlx.DB) *LecturerRepository {
	return &LecturerRepository{db: db}
}

// Create persists a new lecturer account.
func (r *LecturerRepository) Create(ctx context.Context, lecturer *models.Lecturer) error {
	now := time.Now().UTC()
	if lecturer.ID == "" {
		lecturer.ID = uuid.NewString()
	}
	lecturer.CreatedAt = now
	lecturer.UpdatedAt = now
	query := `INSERT INTO lecturers (id, email, password_hash, full_name, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		lecturer.ID, lecturer.Email, lecturer.PasswordHash, lecturer.FullName,
		lecturer.Active, lecturer.CreatedAt, lecturer.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert lecturer: %w", err)
	}
	return nil
}

// FindByEmail fetches a lecturer by email.
func (r *LecturerRepository) FindByEmail(ctx context.Context, email string) (*models.Lecturer, error) {
	var lecturer models.Lecturer
	query := `SELECT id, email, password_hash, full_name, active, last_login, created_at, updated_at
FROM lecturers WHERE email = $1`
	if err := r.db.GetContext(ctx, &lecturer, query, email); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

// FindByID fetches a lecturer by id.
func (r *LecturerRepository) FindByID(ctx context.Context, id string) (*models.Lecturer, error) {
	var lecturer models.Lecturer
	query := `SELECT id, email, password_hash, full_name, active, last_login, created_at, updated_at
FROM lecturers WHERE id = $1`
	if err := r.db.GetContext(ctx, &lecturer, query, id); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *LecturerRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE lecturers SET last_login = $1, updated_at = $1 WHERE id = $2`, ts, id); err != nil {
		return fmt.Errorf("update last login for %s: %w", id, err)
	}
	return nil
}

// CreateRefreshToken stores a refresh token.
func (r *LecturerRepository) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, lecturer_id, token, expires_at, created_at, revoked, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.LecturerID, t.Token, t.ExpiresAt, t.CreatedAt, t.Revoked, t.IPAddress, t.UserAgent,
	); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken fetches a refresh token by value.
func (r *LecturerRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	query := `SELECT id, lecturer_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
FROM refresh_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *LecturerRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE id = $2`, revokedAt, id); err != nil {
		return fmt.Errorf("revoke refresh token %s: %w", id, err)
	}
	return nil
}
