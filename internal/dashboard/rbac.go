package dashboard

import (
	"context"
	"fmt"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/procedure"
)

// RolePermissionInput identifies a role/permission pair.
type RolePermissionInput struct {
	RoleID       string `json:"roleId" validate:"notblank"`
	PermissionID string `json:"permissionId" validate:"notblank"`
}

// UpdateRoleInput is the input of rbac.updateRole. Description must be present
// in the request; null clears it.
type UpdateRoleInput struct {
	ID          string                     `json:"id" validate:"notblank"`
	Name        string                     `json:"name" validate:"rbacname"`
	Description procedure.Nullable[string] `json:"description"`
}

// UpdatePermissionInput is the input of rbac.updatePermission.
type UpdatePermissionInput struct {
	ID          string                     `json:"id" validate:"notblank"`
	Name        string                     `json:"name" validate:"rbacname"`
	Description procedure.Nullable[string] `json:"description"`
}

func requireDescription(d procedure.Nullable[string]) error {
	if !d.Set {
		return procedure.BadRequest(procedure.Issue{Path: "description", Message: "Required"})
	}
	return nil
}

func roleAndPermissionResources(in *RolePermissionInput) []audit.Resource {
	return []audit.Resource{
		{Type: "role", ID: in.RoleID},
		{Type: "permission", ID: in.PermissionID},
	}
}

// roleAndPermissionWorkspace loads the caller's workspace and checks that both
// the role and the permission belong to it.
func (d *deps) roleAndPermissionWorkspace(ctx context.Context, caller *auth.Caller, in *RolePermissionInput) (*models.Workspace, error) {
	ws, err := d.tenantWorkspace(ctx, caller)
	if err != nil {
		return nil, err
	}
	role, err := d.rbac.GetRole(ctx, ws.ID, in.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, procedure.NotFound("role", d.supportEmail)
	}
	perm, err := d.rbac.GetPermission(ctx, ws.ID, in.PermissionID)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, procedure.NotFound("permission", d.supportEmail)
	}
	return ws, nil
}

func (d *deps) disconnectPermissionFromRole() procedure.Definition[RolePermissionInput, *models.Workspace, Void] {
	return procedure.Definition[RolePermissionInput, *models.Workspace, Void]{
		Name:    "rbac.disconnectPermissionFromRole",
		Failure: "disconnect the permission from the role",
		Load:    d.roleAndPermissionWorkspace,
		Mutate: func(ctx context.Context, in *RolePermissionInput, ws *models.Workspace) (Void, error) {
			_, err := d.rbac.DisconnectPermissionFromRole(ctx, ws.ID, in.RoleID, in.PermissionID)
			return Void{}, err
		},
		Audit: func(in *RolePermissionInput, ws *models.Workspace, _ Void) audit.Event {
			return audit.Event{
				WorkspaceID: ws.ID,
				Event:       "authorization.disconnect_role_and_permissions",
				Description: fmt.Sprintf("Disconnect role %s from permission %s", in.RoleID, in.PermissionID),
				Resources:   roleAndPermissionResources(in),
			}
		},
	}
}

func (d *deps) connectPermissionToRole() procedure.Definition[RolePermissionInput, *models.Workspace, Void] {
	return procedure.Definition[RolePermissionInput, *models.Workspace, Void]{
		Name:    "rbac.connectPermissionToRole",
		Failure: "connect the permission to the role",
		Load:    d.roleAndPermissionWorkspace,
		Mutate: func(ctx context.Context, in *RolePermissionInput, ws *models.Workspace) (Void, error) {
			return Void{}, d.rbac.ConnectPermissionToRole(ctx, ws.ID, in.RoleID, in.PermissionID, d.now())
		},
		Audit: func(in *RolePermissionInput, ws *models.Workspace, _ Void) audit.Event {
			return audit.Event{
				WorkspaceID: ws.ID,
				Event:       "authorization.connect_role_and_permission",
				Description: fmt.Sprintf("Connect role %s to permission %s", in.RoleID, in.PermissionID),
				Resources:   roleAndPermissionResources(in),
			}
		},
	}
}

func (d *deps) updateRole() procedure.Definition[UpdateRoleInput, *models.Workspace, Void] {
	return procedure.Definition[UpdateRoleInput, *models.Workspace, Void]{
		Name:    "rbac.updateRole",
		Failure: "update the role",
		Validate: func(in *UpdateRoleInput) error {
			return requireDescription(in.Description)
		},
		Load: func(ctx context.Context, caller *auth.Caller, in *UpdateRoleInput) (*models.Workspace, error) {
			ws, err := d.tenantWorkspace(ctx, caller)
			if err != nil {
				return nil, err
			}
			role, err := d.rbac.GetRole(ctx, ws.ID, in.ID)
			if err != nil {
				return nil, err
			}
			if role == nil {
				return nil, procedure.NotFound("role", d.supportEmail)
			}
			return ws, nil
		},
		Mutate: func(ctx context.Context, in *UpdateRoleInput, ws *models.Workspace) (Void, error) {
			return Void{}, d.rbac.UpdateRole(ctx, ws.ID, in.ID, in.Name, in.Description.Value, d.now())
		},
		Audit: func(in *UpdateRoleInput, ws *models.Workspace, _ Void) audit.Event {
			return audit.Event{
				WorkspaceID: ws.ID,
				Event:       "role.update",
				Description: fmt.Sprintf("Updated role %s", in.ID),
				Resources:   []audit.Resource{{Type: "role", ID: in.ID}},
			}
		},
	}
}

func (d *deps) updatePermission() procedure.Definition[UpdatePermissionInput, *models.Workspace, Void] {
	return procedure.Definition[UpdatePermissionInput, *models.Workspace, Void]{
		Name:    "rbac.updatePermission",
		Failure: "update the permission",
		Validate: func(in *UpdatePermissionInput) error {
			return requireDescription(in.Description)
		},
		Load: func(ctx context.Context, caller *auth.Caller, in *UpdatePermissionInput) (*models.Workspace, error) {
			ws, err := d.tenantWorkspace(ctx, caller)
			if err != nil {
				return nil, err
			}
			perm, err := d.rbac.GetPermission(ctx, ws.ID, in.ID)
			if err != nil {
				return nil, err
			}
			if perm == nil {
				return nil, procedure.NotFound("permission", d.supportEmail)
			}
			return ws, nil
		},
		Mutate: func(ctx context.Context, in *UpdatePermissionInput, ws *models.Workspace) (Void, error) {
			return Void{}, d.rbac.UpdatePermission(ctx, ws.ID, in.ID, in.Name, in.Description.Value, d.now())
		},
		Audit: func(in *UpdatePermissionInput, ws *models.Workspace, _ Void) audit.Event {
			return audit.Event{
				WorkspaceID: ws.ID,
				Event:       "permission.update",
				Description: fmt.Sprintf("Updated permission %s", in.ID),
				Resources:   []audit.Resource{{Type: "permission", ID: in.ID}},
			}
		},
	}
}
