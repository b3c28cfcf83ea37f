package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/repositories"
	"github.com/keydash/dashboard/internal/procedure"
)

const supportEmail = "support@keydash.dev"

var (
	errDB     = errors.New("db error")
	fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// captureSink records every ingested event.
type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (c *captureSink) Ingest(_ context.Context, ev audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

// newTestProcedures wires every procedure to a sqlmock database. Unmet or
// unexpected statements fail the test.
func newTestProcedures(t *testing.T) (*Procedures, sqlmock.Sqlmock, *captureSink) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		db.Close()
	})

	sdb := sqlx.NewDb(db, "sqlmock")
	sink := &captureSink{}
	d := &deps{
		workspaces:   repositories.NewWorkspaceRepository(sdb),
		apis:         repositories.NewAPIRepository(sdb),
		keys:         repositories.NewKeyRepository(sdb),
		rbac:         repositories.NewRBACRepository(sdb),
		webhooks:     repositories.NewWebhookRepository(sdb),
		supportEmail: supportEmail,
		now:          func() time.Time { return fixedTime },
	}
	return newProcedures(d, sink), mock, sink
}

func tenantCaller(tenant string) *auth.Caller {
	return &auth.Caller{
		TenantID: tenant,
		UserID:   "user_1",
		Audit:    auth.AuditContext{Location: "203.0.113.7", UserAgent: "test-agent"},
	}
}

var workspaceCols = []string{"id", "tenant_id", "name", "created_at"}

func expectWorkspace(mock sqlmock.Sqlmock, tenant, wsID string) {
	mock.ExpectQuery("SELECT id, tenant_id, name, created_at FROM workspaces WHERE tenant_id").
		WithArgs(tenant).
		WillReturnRows(sqlmock.NewRows(workspaceCols).AddRow(wsID, tenant, "Acme", fixedTime))
}

func expectNoWorkspace(mock sqlmock.Sqlmock, tenant string) {
	mock.ExpectQuery("SELECT id, tenant_id, name, created_at FROM workspaces WHERE tenant_id").
		WithArgs(tenant).
		WillReturnRows(sqlmock.NewRows(workspaceCols))
}

// messageOf returns the client-facing message of a procedure error.
func messageOf(t *testing.T, err error) string {
	t.Helper()
	var pe *procedure.Error
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a *procedure.Error", err)
	}
	return pe.Message
}
