// Package main mints a dashboard session for an existing user and prints the
// signed session token. It is an operator tool for local development and
// smoke tests: the token can be sent as "Authorization: Bearer <token>" or set
// as the session cookie.
//
// Usage:
//
//	mint-session -email alice@example.com [-workspace <id>] [-ttl 12h]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/db"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/db/repositories"
	"github.com/keydash/dashboard/internal/telemetry"
)

type userStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUserWorkspaces(ctx context.Context, userID string) ([]models.Workspace, error)
}

type sessionStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time) (*models.Session, error)
}

type mintRequest struct {
	Email       string
	WorkspaceID string
	TTL         time.Duration
}

func main() {
	email := flag.String("email", "", "email of the user to sign in as (required)")
	workspace := flag.String("workspace", "", "workspace id to act in (default: the user's first workspace)")
	ttl := flag.Duration("ttl", 0, "session lifetime (default: auth.token_ttl)")
	flag.Parse()

	if err := run(mintRequest{Email: *email, WorkspaceID: *workspace, TTL: *ttl}); err != nil {
		slog.Error("mint-session failed", "error", err)
		os.Exit(1)
	}
}

func run(req mintRequest) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if req.TTL <= 0 {
		req.TTL = cfg.Auth.TokenTTL
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	token, err := mint(context.Background(),
		repositories.NewUserRepository(database),
		repositories.NewSessionRepository(database),
		req, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// mint creates a session row for the user and signs a token scoped to the
// chosen workspace's tenant.
func mint(ctx context.Context, users userStore, sessions sessionStore, req mintRequest, now time.Time) (string, error) {
	if req.Email == "" {
		return "", errors.New("-email is required")
	}
	if req.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}

	user, err := users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("no user with email %q", req.Email)
	}

	workspaces, err := users.ListUserWorkspaces(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to list workspaces: %w", err)
	}
	ws, err := pickWorkspace(workspaces, req.WorkspaceID)
	if err != nil {
		return "", err
	}

	session, err := sessions.CreateSession(ctx, user.ID, now.Add(req.TTL))
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	token, err := auth.GenerateSessionToken(user.ID, ws.TenantID, session.ID, req.TTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	slog.Info("session minted", "user_id", user.ID, "workspace_id", ws.ID, "session_id", session.ID, "expires_at", session.ExpiresAt)
	return token, nil
}

func pickWorkspace(workspaces []models.Workspace, id string) (*models.Workspace, error) {
	if len(workspaces) == 0 {
		return nil, errors.New("user is not a member of any workspace")
	}
	if id == "" {
		return &workspaces[0], nil
	}
	for i := range workspaces {
		if workspaces[i].ID == id {
			return &workspaces[i], nil
		}
	}
	return nil, fmt.Errorf("user is not a member of workspace %q", id)
}
