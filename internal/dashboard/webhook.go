package dashboard

import (
	"context"
	"fmt"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/procedure"
)

// ToggleWebhookInput is the input of webhook.toggle. Enabled is required.
type ToggleWebhookInput struct {
	WebhookID string `json:"webhookId" validate:"notblank"`
	Enabled   *bool  `json:"enabled" validate:"required"`
}

// ToggleWebhookOutput echoes the new state.
type ToggleWebhookOutput struct {
	Enabled bool `json:"enabled"`
}

func (d *deps) toggleWebhook() procedure.Definition[ToggleWebhookInput, *models.Workspace, ToggleWebhookOutput] {
	return procedure.Definition[ToggleWebhookInput, *models.Workspace, ToggleWebhookOutput]{
		Name:    "webhook.toggle",
		Failure: "update the webhook",
		Load: func(ctx context.Context, caller *auth.Caller, in *ToggleWebhookInput) (*models.Workspace, error) {
			ws, err := d.tenantWorkspace(ctx, caller)
			if err != nil {
				return nil, err
			}
			wh, err := d.webhooks.Get(ctx, ws.ID, in.WebhookID)
			if err != nil {
				return nil, err
			}
			if wh == nil {
				return nil, procedure.NotFound("webhook", d.supportEmail)
			}
			return ws, nil
		},
		Mutate: func(ctx context.Context, in *ToggleWebhookInput, _ *models.Workspace) (ToggleWebhookOutput, error) {
			if err := d.webhooks.SetEnabled(ctx, in.WebhookID, *in.Enabled); err != nil {
				return ToggleWebhookOutput{}, err
			}
			return ToggleWebhookOutput{Enabled: *in.Enabled}, nil
		},
		Audit: func(in *ToggleWebhookInput, ws *models.Workspace, out ToggleWebhookOutput) audit.Event {
			verb := "Disabled"
			if out.Enabled {
				verb = "Enabled"
			}
			return audit.Event{
				WorkspaceID: ws.ID,
				Event:       "webhook.update",
				Description: fmt.Sprintf("%s %s", verb, in.WebhookID),
				Resources:   []audit.Resource{{Type: "webhook", ID: in.WebhookID}},
			}
		},
	}
}
