// key_repository.go implements KeyRepository for key lookups and renames.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// KeyRepository handles key database operations
type KeyRepository struct {
	db *sqlx.DB
}

// NewKeyRepository creates a new KeyRepository
func NewKeyRepository(db *sqlx.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// GetWithWorkspace retrieves a key and its owning workspace by key ID
func (r *KeyRepository) GetWithWorkspace(ctx context.Context, id string) (*models.Key, error) {
	query := `
		SELECT k.id, k.workspace_id, k.key_auth_id, k.start, k.name, k.created_at,` + workspaceJoinCols + `
		FROM keys k
		JOIN workspaces w ON w.id = k.workspace_id
		WHERE k.id = $1
	`

	var key models.Key
	if err := r.db.GetContext(ctx, &key, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// UpdateName sets the key's display name. A nil name clears it.
func (r *KeyRepository) UpdateName(ctx context.Context, id string, name *string) error {
	query := `UPDATE keys SET name = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, name, id)
	return err
}
