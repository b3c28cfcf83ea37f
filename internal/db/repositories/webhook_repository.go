// webhook_repository.go implements WebhookRepository for workspace-scoped webhook lookups
// and the enabled toggle.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// WebhookRepository handles webhook database operations
type WebhookRepository struct {
	db *sqlx.DB
}

// NewWebhookRepository creates a new WebhookRepository
func NewWebhookRepository(db *sqlx.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Get retrieves a webhook by ID, restricted to workspaceID
func (r *WebhookRepository) Get(ctx context.Context, workspaceID, webhookID string) (*models.Webhook, error) {
	query := `SELECT id, workspace_id, destination, enabled, created_at
			  FROM webhooks WHERE workspace_id = $1 AND id = $2`

	var wh models.Webhook
	if err := r.db.GetContext(ctx, &wh, query, workspaceID, webhookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &wh, nil
}

// SetEnabled flips the webhook's enabled flag
func (r *WebhookRepository) SetEnabled(ctx context.Context, webhookID string, enabled bool) error {
	query := `UPDATE webhooks SET enabled = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, enabled, webhookID)
	return err
}
