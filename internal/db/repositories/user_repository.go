// user_repository.go implements UserRepository and SessionRepository: account lookups,
// workspace membership resolution, and session / OTP lifecycle queries.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userCols = `id, email, first_name, last_name, profile_picture_url, created_at, updated_at`

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUserWorkspaces returns the workspaces the user is a member of, oldest membership first
func (r *UserRepository) ListUserWorkspaces(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := `
		SELECT w.id, w.tenant_id, w.name, w.created_at
		FROM memberships m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.user_id = $1
		ORDER BY m.created_at
	`
	var out []models.Workspace
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionRepository handles session and OTP database operations
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a session for userID expiring at expiresAt
func (r *SessionRepository) CreateSession(ctx context.Context, userID string, expiresAt time.Time) (*models.Session, error) {
	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	query := `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.ExpiresAt); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	if err := r.db.GetContext(ctx, &s, `SELECT id, user_id, expires_at FROM sessions WHERE id = $1`, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredOTPs removes one-time passcodes that expired before now
func (r *SessionRepository) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
