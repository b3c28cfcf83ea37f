// Package auth - caller.go defines the authenticated request context handed to procedures.
package auth

import "context"

// AuditContext is request metadata recorded with every audit event.
type AuditContext struct {
	Location  string
	UserAgent string
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	TenantID string
	UserID   string
	Audit    AuditContext
}

// Authenticated reports whether the caller carries a tenant.
func (c *Caller) Authenticated() bool {
	return c != nil && c.TenantID != ""
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored in ctx, or nil.
func CallerFromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}
