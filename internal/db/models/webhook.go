// Package models - webhook.go defines outbound webhook destinations.
package models

import "time"

// Webhook is a destination URL that receives workspace events while enabled.
type Webhook struct {
	ID          string    `db:"id" json:"id"`
	WorkspaceID string    `db:"workspace_id" json:"workspaceId"`
	Destination string    `db:"destination" json:"destination"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
