// api_repository.go implements APIRepository, providing point lookups of APIs with their
// owning workspace and the IP whitelist update.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// APIRepository handles API database operations
type APIRepository struct {
	db *sqlx.DB
}

// NewAPIRepository creates a new APIRepository
func NewAPIRepository(db *sqlx.DB) *APIRepository {
	return &APIRepository{db: db}
}

// GetWithWorkspace retrieves an API and its owning workspace by API ID
func (r *APIRepository) GetWithWorkspace(ctx context.Context, id string) (*models.API, error) {
	query := `
		SELECT a.id, a.name, a.workspace_id, a.ip_whitelist,` + workspaceJoinCols + `
		FROM apis a
		JOIN workspaces w ON w.id = a.workspace_id
		WHERE a.id = $1
	`

	var api models.API
	if err := r.db.GetContext(ctx, &api, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &api, nil
}

// UpdateIPWhitelist replaces the API's whitelist. A nil whitelist clears it.
func (r *APIRepository) UpdateIPWhitelist(ctx context.Context, id string, whitelist *string) error {
	query := `UPDATE apis SET ip_whitelist = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, whitelist, id)
	return err
}
