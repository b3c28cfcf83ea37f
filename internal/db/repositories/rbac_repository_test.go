package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var roleCols = []string{"id", "workspace_id", "name", "description", "created_at", "updated_at"}

func newRBACRepo(t *testing.T) (*RBACRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewRBACRepository(db), mock
}

// ---------------------------------------------------------------------------
// GetRole / GetPermission
// ---------------------------------------------------------------------------

func TestGetRole_Found(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectQuery("SELECT .* FROM roles WHERE workspace_id = \\$1 AND id = \\$2").
		WithArgs("ws_1", "role_1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("role_1", "ws_1", "admin", nil, time.Now(), nil))

	role, err := repo.GetRole(context.Background(), "ws_1", "role_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role == nil || role.Name != "admin" || role.Description != nil {
		t.Errorf("role = %+v", role)
	}
}

func TestGetRole_NotFound(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectQuery("SELECT .* FROM roles").WillReturnRows(sqlmock.NewRows(roleCols))

	role, err := repo.GetRole(context.Background(), "ws_1", "role_other")
	if err != nil || role != nil {
		t.Errorf("GetRole = %+v, %v; want nil, nil", role, err)
	}
}

func TestGetRole_Error(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectQuery("SELECT .* FROM roles").WillReturnError(errDB)

	if _, err := repo.GetRole(context.Background(), "ws_1", "role_1"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestGetPermission_Found(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectQuery("SELECT .* FROM permissions WHERE workspace_id").
		WithArgs("ws_1", "perm_1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("perm_1", "ws_1", "keys:read", "read keys", time.Now(), time.Now()))

	p, err := repo.GetPermission(context.Background(), "ws_1", "perm_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Description == nil || *p.Description != "read keys" || p.UpdatedAt == nil {
		t.Errorf("permission = %+v", p)
	}
}

func TestGetPermission_NotFound(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectQuery("SELECT .* FROM permissions").WillReturnRows(sqlmock.NewRows(roleCols))

	p, err := repo.GetPermission(context.Background(), "ws_1", "perm_1")
	if err != nil || p != nil {
		t.Errorf("GetPermission = %+v, %v; want nil, nil", p, err)
	}
}

// ---------------------------------------------------------------------------
// UpdateRole / UpdatePermission
// ---------------------------------------------------------------------------

func TestUpdateRole(t *testing.T) {
	repo, mock := newRBACRepo(t)
	now := time.Now()
	mock.ExpectExec("UPDATE roles SET name = \\$1, description = \\$2, updated_at = \\$3").
		WithArgs("admin_v2", nil, now, "role_1", "ws_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateRole(context.Background(), "ws_1", "role_1", "admin_v2", nil, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateRole_Error(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectExec("UPDATE roles").WillReturnError(errDB)

	if err := repo.UpdateRole(context.Background(), "ws_1", "role_1", "admin", nil, time.Now()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestUpdatePermission(t *testing.T) {
	repo, mock := newRBACRepo(t)
	now := time.Now()
	mock.ExpectExec("UPDATE permissions SET name").
		WithArgs("keys:write", "write keys", now, "perm_1", "ws_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdatePermission(context.Background(), "ws_1", "perm_1", "keys:write", strPtr("write keys"), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Connect / Disconnect
// ---------------------------------------------------------------------------

func TestConnectPermissionToRole(t *testing.T) {
	repo, mock := newRBACRepo(t)
	now := time.Now()
	mock.ExpectExec("INSERT INTO roles_permissions .* ON CONFLICT .* DO NOTHING").
		WithArgs("role_1", "perm_1", "ws_1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ConnectPermissionToRole(context.Background(), "ws_1", "role_1", "perm_1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDisconnectPermissionFromRole_ScopedByWorkspace(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectExec("DELETE FROM roles_permissions\\s+WHERE workspace_id = \\$1 AND role_id = \\$2 AND permission_id = \\$3").
		WithArgs("ws_1", "role_1", "perm_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DisconnectPermissionFromRole(context.Background(), "ws_1", "role_1", "perm_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestDisconnectPermissionFromRole_NothingToDelete(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectExec("DELETE FROM roles_permissions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.DisconnectPermissionFromRole(context.Background(), "ws_1", "role_1", "perm_foreign")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("rows affected = %d, want 0", n)
	}
}

func TestDisconnectPermissionFromRole_Error(t *testing.T) {
	repo, mock := newRBACRepo(t)
	mock.ExpectExec("DELETE FROM roles_permissions").WillReturnError(errDB)

	if _, err := repo.DisconnectPermissionFromRole(context.Background(), "ws_1", "role_1", "perm_1"); err == nil {
		t.Error("expected error, got nil")
	}
}
