// Package models - audit_log.go defines the append-only AuditLog record and its JSONB
// resource list.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditResource identifies one entity touched by an audited action.
type AuditResource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// AuditResources is stored as a JSONB array.
type AuditResources []AuditResource

// Value implements driver.Valuer. A nil list is stored as [].
func (r AuditResources) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AuditResource(r))
}

// Scan implements sql.Scanner.
func (r *AuditResources) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for audit resources", src)
	}
	return json.Unmarshal(raw, (*[]AuditResource)(r))
}

// AuditLog is one recorded mutation. Actor type is "user" for dashboard sessions.
type AuditLog struct {
	ID          string         `db:"id" json:"id"`
	WorkspaceID string         `db:"workspace_id" json:"workspaceId"`
	ActorType   string         `db:"actor_type" json:"actorType"`
	ActorID     string         `db:"actor_id" json:"actorId"`
	Event       string         `db:"event" json:"event"`
	Description string         `db:"description" json:"description"`
	Resources   AuditResources `db:"resources" json:"resources"`
	Location    *string        `db:"location" json:"location"`
	UserAgent   *string        `db:"user_agent" json:"userAgent"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}
