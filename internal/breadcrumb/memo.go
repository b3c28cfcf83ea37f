package breadcrumb

import (
	"context"
	"sync"

	"github.com/keydash/dashboard/internal/db/models"
)

// Memo caches API lookups for the lifetime of one render pass. Misses are
// memoised too, so a pass never repeats a lookup.
type Memo struct {
	mu   sync.Mutex
	apis map[string]*models.API
}

type memoKey struct{}

// WithMemo returns a context carrying a fresh Memo.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &Memo{apis: make(map[string]*models.API)})
}

func memoFrom(ctx context.Context) *Memo {
	m, _ := ctx.Value(memoKey{}).(*Memo)
	return m
}

func (m *Memo) get(id string) (*models.API, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	api, ok := m.apis[id]
	return api, ok
}

func (m *Memo) put(id string, api *models.API) {
	m.mu.Lock()
	m.apis[id] = api
	m.mu.Unlock()
}
