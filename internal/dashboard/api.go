package dashboard

import (
	"context"
	"fmt"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/procedure"
)

// UpdateIPWhitelistInput is the input of api.updateIpWhitelist. IPWhitelist
// must be present in the request; null or "" clears it. It is replaced by its
// normalised form during validation.
type UpdateIPWhitelistInput struct {
	APIID       string                     `json:"apiId" validate:"notblank"`
	WorkspaceID string                     `json:"workspaceId" validate:"notblank"`
	IPWhitelist procedure.Nullable[string] `json:"ipWhitelist"`
}

func (d *deps) updateIPWhitelist() procedure.Definition[UpdateIPWhitelistInput, *models.API, Void] {
	return procedure.Definition[UpdateIPWhitelistInput, *models.API, Void]{
		Name:    "api.updateIpWhitelist",
		Failure: "update the API whitelist",
		Validate: func(in *UpdateIPWhitelistInput) error {
			if !in.IPWhitelist.Set {
				return procedure.BadRequest(procedure.Issue{Path: "ipWhitelist", Message: "Required"})
			}
			normalized, err := NormalizeIPWhitelist(in.IPWhitelist.Value)
			if err != nil {
				return err
			}
			in.IPWhitelist.Value = normalized
			return nil
		},
		Load: func(ctx context.Context, caller *auth.Caller, in *UpdateIPWhitelistInput) (*models.API, error) {
			api, err := d.apis.GetWithWorkspace(ctx, in.APIID)
			if err != nil {
				return nil, err
			}
			if api == nil || api.WorkspaceID != in.WorkspaceID {
				return nil, procedure.NotFound("API", d.supportEmail)
			}
			if err := procedure.RequireTenant(&api.Workspace, caller, "API", d.supportEmail); err != nil {
				return nil, err
			}
			return api, nil
		},
		Mutate: func(ctx context.Context, in *UpdateIPWhitelistInput, api *models.API) (Void, error) {
			return Void{}, d.apis.UpdateIPWhitelist(ctx, api.ID, in.IPWhitelist.Value)
		},
		Audit: func(in *UpdateIPWhitelistInput, api *models.API, _ Void) audit.Event {
			return audit.Event{
				WorkspaceID: api.Workspace.ID,
				Event:       "api.update",
				Description: fmt.Sprintf("Changed %s IP whitelist from %s to %s", api.ID, orNull(api.IPWhitelist), orNull(in.IPWhitelist.Value)),
				Resources:   []audit.Resource{{Type: "api", ID: api.ID}},
			}
		},
	}
}
