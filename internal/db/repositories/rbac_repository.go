// rbac_repository.go implements RBACRepository, providing workspace-scoped queries for
// roles, permissions and the roles_permissions association.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/keydash/dashboard/internal/db/models"
)

// RBACRepository handles database operations for RBAC features
type RBACRepository struct {
	db *sqlx.DB
}

// NewRBACRepository creates a new RBAC repository
func NewRBACRepository(db *sqlx.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

// ============================================================================
// Roles
// ============================================================================

// GetRole retrieves a role by ID, restricted to workspaceID
func (r *RBACRepository) GetRole(ctx context.Context, workspaceID, roleID string) (*models.Role, error) {
	query := `SELECT id, workspace_id, name, description, created_at, updated_at
			  FROM roles WHERE workspace_id = $1 AND id = $2`

	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, workspaceID, roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// UpdateRole overwrites a role's name and description. A nil description clears it.
func (r *RBACRepository) UpdateRole(ctx context.Context, workspaceID, roleID, name string, description *string, updatedAt time.Time) error {
	query := `UPDATE roles SET name = $1, description = $2, updated_at = $3
			  WHERE id = $4 AND workspace_id = $5`
	_, err := r.db.ExecContext(ctx, query, name, description, updatedAt, roleID, workspaceID)
	return err
}

// ============================================================================
// Permissions
// ============================================================================

// GetPermission retrieves a permission by ID, restricted to workspaceID
func (r *RBACRepository) GetPermission(ctx context.Context, workspaceID, permissionID string) (*models.Permission, error) {
	query := `SELECT id, workspace_id, name, description, created_at, updated_at
			  FROM permissions WHERE workspace_id = $1 AND id = $2`

	var p models.Permission
	if err := r.db.GetContext(ctx, &p, query, workspaceID, permissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpdatePermission overwrites a permission's name and description.
func (r *RBACRepository) UpdatePermission(ctx context.Context, workspaceID, permissionID, name string, description *string, updatedAt time.Time) error {
	query := `UPDATE permissions SET name = $1, description = $2, updated_at = $3
			  WHERE id = $4 AND workspace_id = $5`
	_, err := r.db.ExecContext(ctx, query, name, description, updatedAt, permissionID, workspaceID)
	return err
}

// ============================================================================
// Role / permission association
// ============================================================================

// ConnectPermissionToRole adds the association. Existing associations are left untouched.
func (r *RBACRepository) ConnectPermissionToRole(ctx context.Context, workspaceID, roleID, permissionID string, now time.Time) error {
	query := `INSERT INTO roles_permissions (role_id, permission_id, workspace_id, created_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (role_id, permission_id, workspace_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, roleID, permissionID, workspaceID, now)
	return err
}

// DisconnectPermissionFromRole removes the association and reports how many rows
// were deleted. Deleting an absent association is not an error.
func (r *RBACRepository) DisconnectPermissionFromRole(ctx context.Context, workspaceID, roleID, permissionID string) (int64, error) {
	query := `DELETE FROM roles_permissions
			  WHERE workspace_id = $1 AND role_id = $2 AND permission_id = $3`
	res, err := r.db.ExecContext(ctx, query, workspaceID, roleID, permissionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
