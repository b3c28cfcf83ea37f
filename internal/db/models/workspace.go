// Package models defines the database model types for the dashboard.
// Each type corresponds to a database table and uses struct tags for both JSON serialization and sqlx row scanning.
// Models are pure data types; query logic belongs in the repositories layer.
package models

import "time"

// Workspace is the tenant-owned container for APIs, keys, roles, permissions and webhooks.
type Workspace struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// OwnedBy reports whether the workspace belongs to tenantID.
func (w *Workspace) OwnedBy(tenantID string) bool {
	return w != nil && w.TenantID != "" && w.TenantID == tenantID
}
