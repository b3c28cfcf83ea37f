// Package models - rbac.go defines workspace-scoped roles, permissions and the
// association table connecting them.
package models

import "time"

// Role is a named set of permissions inside a workspace.
type Role struct {
	ID          string     `db:"id" json:"id"`
	WorkspaceID string     `db:"workspace_id" json:"workspaceId"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt"`
}

// Permission is a named capability inside a workspace.
type Permission struct {
	ID          string     `db:"id" json:"id"`
	WorkspaceID string     `db:"workspace_id" json:"workspaceId"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt"`
}

// RolePermission associates a role with a permission. Keyed by all three ids.
type RolePermission struct {
	RoleID       string     `db:"role_id" json:"roleId"`
	PermissionID string     `db:"permission_id" json:"permissionId"`
	WorkspaceID  string     `db:"workspace_id" json:"workspaceId"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updatedAt"`
}
