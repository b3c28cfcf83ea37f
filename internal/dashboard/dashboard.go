// Package dashboard defines the tenant-scoped mutations exposed to the dashboard UI.
// Each one is a procedure.Definition wired to the repositories it reads and writes.
package dashboard

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/db/repositories"
	"github.com/keydash/dashboard/internal/procedure"
)

// Void is the result of procedures that return nothing. It encodes as JSON null.
type Void struct{}

// MarshalJSON implements json.Marshaler.
func (Void) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Procedures holds every dashboard mutation.
type Procedures struct {
	UpdateAPIIPWhitelist         *procedure.Procedure[UpdateIPWhitelistInput, *models.API, Void]
	UpdateKeyName                *procedure.Procedure[UpdateKeyNameInput, *models.Key, bool]
	DisconnectPermissionFromRole *procedure.Procedure[RolePermissionInput, *models.Workspace, Void]
	ConnectPermissionToRole      *procedure.Procedure[RolePermissionInput, *models.Workspace, Void]
	UpdateRole                   *procedure.Procedure[UpdateRoleInput, *models.Workspace, Void]
	UpdatePermission             *procedure.Procedure[UpdatePermissionInput, *models.Workspace, Void]
	ToggleWebhook                *procedure.Procedure[ToggleWebhookInput, *models.Workspace, ToggleWebhookOutput]
}

// deps is shared by every procedure definition.
type deps struct {
	workspaces   *repositories.WorkspaceRepository
	apis         *repositories.APIRepository
	keys         *repositories.KeyRepository
	rbac         *repositories.RBACRepository
	webhooks     *repositories.WebhookRepository
	supportEmail string
	now          func() time.Time
}

// New builds the procedures over db. Audit events go to sink.
func New(db *sqlx.DB, sink audit.Sink, supportEmail string) *Procedures {
	return newProcedures(&deps{
		workspaces:   repositories.NewWorkspaceRepository(db),
		apis:         repositories.NewAPIRepository(db),
		keys:         repositories.NewKeyRepository(db),
		rbac:         repositories.NewRBACRepository(db),
		webhooks:     repositories.NewWebhookRepository(db),
		supportEmail: supportEmail,
		now:          func() time.Time { return time.Now().UTC() },
	}, sink)
}

func newProcedures(d *deps, sink audit.Sink) *Procedures {
	return &Procedures{
		UpdateAPIIPWhitelist:         procedure.New(d.updateIPWhitelist(), sink, d.supportEmail),
		UpdateKeyName:                procedure.New(d.updateKeyName(), sink, d.supportEmail),
		DisconnectPermissionFromRole: procedure.New(d.disconnectPermissionFromRole(), sink, d.supportEmail),
		ConnectPermissionToRole:      procedure.New(d.connectPermissionToRole(), sink, d.supportEmail),
		UpdateRole:                   procedure.New(d.updateRole(), sink, d.supportEmail),
		UpdatePermission:             procedure.New(d.updatePermission(), sink, d.supportEmail),
		ToggleWebhook:                procedure.New(d.toggleWebhook(), sink, d.supportEmail),
	}
}

// tenantWorkspace loads the caller's workspace or fails with NOT_FOUND.
func (d *deps) tenantWorkspace(ctx context.Context, caller *auth.Caller) (*models.Workspace, error) {
	ws, err := d.workspaces.GetByTenantID(ctx, caller.TenantID)
	if err != nil {
		return nil, err
	}
	if err := procedure.RequireTenant(ws, caller, "workspace", d.supportEmail); err != nil {
		return nil, err
	}
	return ws, nil
}

// orNull renders a nullable string the way audit descriptions expect.
func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
