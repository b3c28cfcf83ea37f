// Package audit records dashboard mutations. Every successful mutation produces
// exactly one Event, which a Sink persists to the audit_logs store and then fans
// out to any configured shippers (webhook, file, redis stream).
//
// Audit records are kept apart from application logs: they are append-only,
// tenant-scoped, and consumed by workspace owners rather than operators.
package audit

import (
	"context"

	"github.com/keydash/dashboard/internal/db/models"
)

// ActorTypeUser marks events performed by a signed-in dashboard user.
const ActorTypeUser = "user"

// Actor identifies who performed an audited action.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Resource identifies one entity touched by an audited action.
type Resource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Context carries request metadata for an audited action.
type Context struct {
	Location  string `json:"location"`
	UserAgent string `json:"userAgent"`
}

// Event is one audited mutation.
type Event struct {
	WorkspaceID string     `json:"workspaceId"`
	Actor       Actor      `json:"actor"`
	Event       string     `json:"event"`
	Description string     `json:"description"`
	Resources   []Resource `json:"resources"`
	Context     Context    `json:"context"`
}

// Sink ingests audit events.
type Sink interface {
	Ingest(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Ingest calls f(ctx, ev).
func (f SinkFunc) Ingest(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Discard is a Sink that drops every event. Used when auditing is disabled.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// ToLog converts ev into its stored representation. Empty context fields are stored as NULL.
func (ev Event) ToLog() *models.AuditLog {
	resources := make(models.AuditResources, 0, len(ev.Resources))
	for _, r := range ev.Resources {
		resources = append(resources, models.AuditResource{Type: r.Type, ID: r.ID})
	}
	return &models.AuditLog{
		WorkspaceID: ev.WorkspaceID,
		ActorType:   ev.Actor.Type,
		ActorID:     ev.Actor.ID,
		Event:       ev.Event,
		Description: ev.Description,
		Resources:   resources,
		Location:    nonEmpty(ev.Context.Location),
		UserAgent:   nonEmpty(ev.Context.UserAgent),
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
