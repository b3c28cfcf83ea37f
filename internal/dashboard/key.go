package dashboard

import (
	"context"
	"fmt"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/procedure"
)

// UpdateKeyNameInput is the input of key.updateName. A null or omitted name clears it.
type UpdateKeyNameInput struct {
	KeyID string  `json:"keyId" validate:"notblank"`
	Name  *string `json:"name"`
}

func (d *deps) updateKeyName() procedure.Definition[UpdateKeyNameInput, *models.Key, bool] {
	return procedure.Definition[UpdateKeyNameInput, *models.Key, bool]{
		Name:    "key.updateName",
		Failure: "update name on this key",
		Load: func(ctx context.Context, caller *auth.Caller, in *UpdateKeyNameInput) (*models.Key, error) {
			key, err := d.keys.GetWithWorkspace(ctx, in.KeyID)
			if err != nil {
				return nil, err
			}
			if key == nil {
				return nil, procedure.NotFound("key", d.supportEmail)
			}
			if err := procedure.RequireTenant(&key.Workspace, caller, "key", d.supportEmail); err != nil {
				return nil, err
			}
			return key, nil
		},
		Mutate: func(ctx context.Context, in *UpdateKeyNameInput, key *models.Key) (bool, error) {
			if err := d.keys.UpdateName(ctx, key.ID, in.Name); err != nil {
				return false, err
			}
			return true, nil
		},
		Audit: func(in *UpdateKeyNameInput, key *models.Key, _ bool) audit.Event {
			return audit.Event{
				WorkspaceID: key.Workspace.ID,
				Event:       "key.update",
				Description: fmt.Sprintf("Changed name of %s to %s", key.ID, orNull(in.Name)),
				Resources:   []audit.Resource{{Type: "key", ID: key.ID}},
			}
		},
	}
}
