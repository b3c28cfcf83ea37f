// Package models - user.go defines dashboard accounts and the records hanging off them:
// sessions, OAuth links, workspace memberships and one-time passwords.
package models

import "time"

// User represents a dashboard account
type User struct {
	ID                string    `db:"id" json:"id"`
	Email             string    `db:"email" json:"email"`
	FirstName         *string   `db:"first_name" json:"firstName"`
	LastName          *string   `db:"last_name" json:"lastName"`
	ProfilePictureURL *string   `db:"profile_picture_url" json:"profilePictureUrl"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Session is a server-side login session referenced by the signed session token.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

// IsExpired reports whether the session is no longer usable at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OAuthProvider enumerates the supported social login providers.
type OAuthProvider string

const (
	OAuthProviderGitHub OAuthProvider = "github"
	OAuthProviderGoogle OAuthProvider = "google"
)

// Valid reports whether p is a known provider.
func (p OAuthProvider) Valid() bool {
	switch p {
	case OAuthProviderGitHub, OAuthProviderGoogle:
		return true
	}
	return false
}

// OAuthLink connects a user to an external identity provider.
type OAuthLink struct {
	ID        string        `db:"id" json:"id"`
	Provider  OAuthProvider `db:"provider" json:"provider"`
	UserID    string        `db:"user_id" json:"userId"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// MembershipRole is a user's role inside a workspace.
type MembershipRole string

const (
	MembershipRoleMember MembershipRole = "member"
	MembershipRoleAdmin  MembershipRole = "admin"
	MembershipRoleOwner  MembershipRole = "owner"
)

// Valid reports whether r is a known membership role.
func (r MembershipRole) Valid() bool {
	switch r {
	case MembershipRoleMember, MembershipRoleAdmin, MembershipRoleOwner:
		return true
	}
	return false
}

// Membership links a user to a workspace. (user_id, workspace_id) is unique.
type Membership struct {
	ID          string         `db:"id" json:"id"`
	Role        MembershipRole `db:"role" json:"role"`
	UserID      string         `db:"user_id" json:"userId"`
	WorkspaceID string         `db:"workspace_id" json:"workspaceId"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// OTP is a six-character one-time passcode emailed to a user.
type OTP struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Email     string    `db:"email" json:"email"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	OTP       string    `db:"otp" json:"-"`
}
