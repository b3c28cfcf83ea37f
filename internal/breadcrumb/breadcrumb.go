// Package breadcrumb resolves the navigation trail shown above dashboard pages.
// Resolution is read-only: a missing or foreign API yields an empty trail.
package breadcrumb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
)

// Crumb is one entry of a trail. The terminal crumb has no Href.
type Crumb struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// APILoader loads an API with its owning workspace. Missing APIs return (nil, nil).
type APILoader interface {
	GetWithWorkspace(ctx context.Context, id string) (*models.API, error)
}

// Resolver builds breadcrumb trails.
type Resolver struct {
	apis  APILoader
	cache APICache
}

// NewResolver returns a Resolver over apis. cache may be nil.
func NewResolver(apis APILoader, cache APICache) *Resolver {
	return &Resolver{apis: apis, cache: cache}
}

// NewKeyTrail returns the trail for the "create key" page of apiID:
// APIs > <api name> > Keys > Create new key.
func (r *Resolver) NewKeyTrail(ctx context.Context, caller *auth.Caller, apiID, keyAuthID string) ([]Crumb, error) {
	if !caller.Authenticated() {
		return nil, nil
	}

	api, err := r.api(ctx, apiID)
	if err != nil {
		return nil, err
	}
	if api == nil || !api.Workspace.OwnedBy(caller.TenantID) {
		return nil, nil
	}

	return []Crumb{
		{Label: "APIs", Href: "/apis"},
		{Label: api.Name, Href: fmt.Sprintf("/apis/%s", api.ID)},
		{Label: "Keys", Href: fmt.Sprintf("/apis/%s/keys/%s", api.ID, keyAuthID)},
		{Label: "Create new key"},
	}, nil
}

// api resolves through the per-pass memo, then the shared cache, then the database.
func (r *Resolver) api(ctx context.Context, id string) (*models.API, error) {
	memo := memoFrom(ctx)
	if memo != nil {
		if api, ok := memo.get(id); ok {
			return api, nil
		}
	}

	api, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if memo != nil {
		memo.put(id, api)
	}
	return api, nil
}

func (r *Resolver) load(ctx context.Context, id string) (*models.API, error) {
	if r.cache != nil {
		api, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "breadcrumb cache read failed", "api_id", id, "error", err)
		} else if ok {
			return api, nil
		}
	}

	api, err := r.apis.GetWithWorkspace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load api %s: %w", id, err)
	}

	if r.cache != nil && api != nil {
		if err := r.cache.Set(ctx, api); err != nil {
			slog.WarnContext(ctx, "breadcrumb cache write failed", "api_id", id, "error", err)
		}
	}
	return api, nil
}
