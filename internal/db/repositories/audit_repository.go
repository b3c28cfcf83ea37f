// audit_repository.go implements AuditRepository, the append-only store for audit log entries.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts a new audit log entry, assigning ID and CreatedAt when unset
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (id, workspace_id, actor_type, actor_id, event, description, resources, location, user_agent, created_at)
		VALUES (:id, :workspace_id, :actor_type, :actor_id, :event, :description, :resources, :location, :user_agent, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}
