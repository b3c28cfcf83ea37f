package db_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/dashboard"
	"github.com/keydash/dashboard/internal/db"
	"github.com/keydash/dashboard/internal/db/repositories"
	"github.com/keydash/dashboard/internal/jobs"
	"github.com/keydash/dashboard/internal/procedure"
)

// startPostgres runs a throwaway postgres container and returns a migrated
// connection. The test is skipped when docker is unavailable.
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() || os.Getenv("SKIP_DOCKER") == "1" {
		t.Skip("skipping docker integration test")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=keydash",
			"POSTGRES_PASSWORD=keydash",
			"POSTGRES_DB=keydash_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("host=localhost port=%s user=keydash password=keydash dbname=keydash_test sslmode=disable",
		resource.GetPort("5432/tcp"))

	var conn *sqlx.DB
	pool.MaxWait = 60 * time.Second
	require.NoError(t, pool.Retry(func() error {
		var err error
		conn, err = db.Connect(dsn, 5, 1)
		return err
	}))
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn.DB, "up"))
	return conn
}

func mustExec(t *testing.T, conn *sqlx.DB, query string, args ...any) {
	t.Helper()
	_, err := conn.Exec(query, args...)
	require.NoError(t, err)
}

func auditCount(t *testing.T, conn *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM audit_logs"))
	return n
}

func TestPostgresIntegration(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	version, dirty, err := db.GetMigrationVersion(conn.DB)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	mustExec(t, conn, `INSERT INTO workspaces (id, tenant_id, name) VALUES ('ws_1', 'org_1', 'Acme'), ('ws_2', 'org_2', 'Other')`)
	mustExec(t, conn, `INSERT INTO webhooks (id, workspace_id, destination, enabled) VALUES ('wh_1', 'ws_1', 'https://example.com/hook', false)`)
	mustExec(t, conn, `INSERT INTO apis (id, name, workspace_id) VALUES ('api_1', 'Payments', 'ws_1')`)
	mustExec(t, conn, `INSERT INTO roles (id, workspace_id, name) VALUES ('role_1', 'ws_1', 'admin'), ('role_2', 'ws_2', 'admin')`)
	mustExec(t, conn, `INSERT INTO permissions (id, workspace_id, name) VALUES ('perm_1', 'ws_1', 'keys.read'), ('perm_2', 'ws_2', 'keys.read')`)
	mustExec(t, conn, `INSERT INTO roles_permissions (role_id, permission_id, workspace_id) VALUES ('role_1', 'perm_1', 'ws_1'), ('role_2', 'perm_2', 'ws_2')`)

	sink := audit.NewRecorder(repositories.NewAuditRepository(conn), nil)
	procs := dashboard.New(conn, sink, "support@keydash.dev")
	owner := &auth.Caller{TenantID: "org_1", UserID: "user_1", Audit: auth.AuditContext{Location: "127.0.0.1", UserAgent: "it"}}
	stranger := &auth.Caller{TenantID: "org_2", UserID: "user_2"}

	t.Run("toggle webhook", func(t *testing.T) {
		enabled := true
		out, err := procs.ToggleWebhook.Run(ctx, owner, dashboard.ToggleWebhookInput{WebhookID: "wh_1", Enabled: &enabled})
		require.NoError(t, err)
		assert.True(t, out.Enabled)

		var stored bool
		require.NoError(t, conn.Get(&stored, "SELECT enabled FROM webhooks WHERE id = 'wh_1'"))
		assert.True(t, stored)
		assert.Equal(t, 1, auditCount(t, conn))
	})

	t.Run("foreign tenant is not found and writes nothing", func(t *testing.T) {
		disabled := false
		before := auditCount(t, conn)
		_, err := procs.ToggleWebhook.Run(ctx, stranger, dashboard.ToggleWebhookInput{WebhookID: "wh_1", Enabled: &disabled})
		assert.Equal(t, procedure.CodeNotFound, procedure.CodeOf(err))

		var stored bool
		require.NoError(t, conn.Get(&stored, "SELECT enabled FROM webhooks WHERE id = 'wh_1'"))
		assert.True(t, stored)
		assert.Equal(t, before, auditCount(t, conn))
	})

	t.Run("ip whitelist is normalised", func(t *testing.T) {
		raw := "1.1.1.1, 2.2.2.2"
		_, err := procs.UpdateAPIIPWhitelist.Run(ctx, owner, dashboard.UpdateIPWhitelistInput{
			APIID: "api_1", WorkspaceID: "ws_1", IPWhitelist: procedure.Of(raw),
		})
		require.NoError(t, err)

		var stored *string
		require.NoError(t, conn.Get(&stored, "SELECT ip_whitelist FROM apis WHERE id = 'api_1'"))
		require.NotNil(t, stored)
		assert.Equal(t, "1.1.1.1,2.2.2.2", *stored)
	})

	t.Run("disconnect is scoped to the caller's workspace", func(t *testing.T) {
		var before int
		require.NoError(t, conn.Get(&before, "SELECT COUNT(*) FROM audit_logs"))

		_, err := procs.DisconnectPermissionFromRole.Run(ctx, owner, dashboard.RolePermissionInput{
			RoleID: "role_2", PermissionID: "perm_2",
		})
		assert.Equal(t, procedure.CodeNotFound, procedure.CodeOf(err))

		var n int
		require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM roles_permissions WHERE workspace_id = 'ws_2'"))
		assert.Equal(t, 1, n, "another workspace's association must survive")
		require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM audit_logs"))
		assert.Equal(t, before, n)

		_, err = procs.DisconnectPermissionFromRole.Run(ctx, owner, dashboard.RolePermissionInput{
			RoleID: "role_1", PermissionID: "perm_1",
		})
		require.NoError(t, err)
		require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM roles_permissions WHERE workspace_id = 'ws_1'"))
		assert.Equal(t, 0, n)
	})

	t.Run("reaper removes expired sessions and otps", func(t *testing.T) {
		mustExec(t, conn, `INSERT INTO users (id, email) VALUES ('user_1', 'a@example.com')`)
		mustExec(t, conn, `INSERT INTO sessions (id, user_id, expires_at) VALUES ('s_old', 'user_1', $1), ('s_new', 'user_1', $2)`,
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		mustExec(t, conn, `INSERT INTO otps (id, user_id, email, expires_at, otp) VALUES ('o_old', 'user_1', 'a@example.com', $1, '123456')`,
			time.Now().Add(-time.Minute))

		sessions, otps := jobs.NewSessionReaper(repositories.NewSessionRepository(conn), time.Hour).RunOnce(ctx)
		assert.Equal(t, int64(1), sessions)
		assert.Equal(t, int64(1), otps)
	})

	require.NoError(t, db.RunMigrations(conn.DB, "down"))
	var exists bool
	require.NoError(t, conn.Get(&exists, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'workspaces')"))
	assert.False(t, exists)
}
