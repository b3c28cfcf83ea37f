// Package repositories implements the data access layer (repository pattern) for the dashboard.
// Each repository type encapsulates all database queries for a domain entity.
// Procedures never issue SQL directly; all database access goes through this layer.
//
// Lookups return (nil, nil) when no row matches so callers can collapse
// "missing" and "not yours" into a single not-found outcome.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// workspaceJoinCols eager-loads the owning workspace (aliased "w") into the
// nested Workspace field of the scanned model.
const workspaceJoinCols = `
		w.id AS "workspace.id",
		w.tenant_id AS "workspace.tenant_id",
		w.name AS "workspace.name",
		w.created_at AS "workspace.created_at"`

// WorkspaceRepository handles workspace database operations
type WorkspaceRepository struct {
	db *sqlx.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *sqlx.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// GetByTenantID retrieves the workspace owned by tenantID
func (r *WorkspaceRepository) GetByTenantID(ctx context.Context, tenantID string) (*models.Workspace, error) {
	query := `SELECT id, tenant_id, name, created_at FROM workspaces WHERE tenant_id = $1`

	var w models.Workspace
	if err := r.db.GetContext(ctx, &w, query, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	query := `SELECT id, tenant_id, name, created_at FROM workspaces WHERE id = $1`

	var w models.Workspace
	if err := r.db.GetContext(ctx, &w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}
