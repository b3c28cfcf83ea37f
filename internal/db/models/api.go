// Package models - api.go defines APIs and the keys issued against them.
package models

import "time"

// API is a protected API owned by a workspace.
// IPWhitelist is a comma-joined list of IP addresses; nil means unrestricted.
type API struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	WorkspaceID string  `db:"workspace_id" json:"workspaceId"`
	IPWhitelist *string `db:"ip_whitelist" json:"ipWhitelist"`

	// Joined from workspaces via "workspace.<col>" aliases.
	Workspace Workspace `db:"workspace" json:"workspace"`
}

// Key is an issued API key. Start holds the displayable key prefix.
type Key struct {
	ID          string    `db:"id" json:"id"`
	WorkspaceID string    `db:"workspace_id" json:"workspaceId"`
	KeyAuthID   string    `db:"key_auth_id" json:"keyAuthId"`
	Start       string    `db:"start" json:"start"`
	Name        *string   `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	Workspace Workspace `db:"workspace" json:"workspace"`
}
