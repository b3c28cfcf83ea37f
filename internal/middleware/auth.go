package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/procedure"
)

const (
	// CallerKey is the gin.Context key holding the *auth.Caller.
	CallerKey = "caller"
	// UserIDKey is the gin.Context key holding the authenticated user id.
	UserIDKey = "user_id"
)

// SessionLookup loads a session row. Missing sessions return (nil, nil).
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// errUnauthenticated is the reason a request carries no usable session.
type errUnauthenticated string

func (e errUnauthenticated) Error() string { return string(e) }

// AuthMiddleware resolves the session token into an auth.Caller and rejects the
// request with 401 when none can be resolved.
//
// The token is read from "Authorization: Bearer <jwt>" or, failing that, the
// session cookie. The JWT must verify and its session row must exist, belong to
// the token's user, and be unexpired. Signing out deletes the row, so a stolen
// token dies with its session.
func AuthMiddleware(cfg *config.Config, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := resolveCaller(c, cfg, sessions)
		if err != nil {
			var unauth errUnauthenticated
			if errors.As(err, &unauth) {
				slog.DebugContext(c.Request.Context(), "request not authenticated", "reason", string(unauth))
				abortUnauthorized(c)
				return
			}
			slog.ErrorContext(c.Request.Context(), "session lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    procedure.CodeInternal,
					"message": "Failed to verify session",
				},
			})
			return
		}

		setCaller(c, caller)
		c.Next()
	}
}

// OptionalAuthMiddleware is AuthMiddleware without the 401: requests without a
// valid session continue anonymously.
func OptionalAuthMiddleware(cfg *config.Config, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller, err := resolveCaller(c, cfg, sessions); err == nil {
			setCaller(c, caller)
		}
		c.Next()
	}
}

func resolveCaller(c *gin.Context, cfg *config.Config, sessions SessionLookup) (*auth.Caller, error) {
	token := bearerToken(c)
	if token == "" && cfg.Auth.SessionCookie != "" {
		token, _ = c.Cookie(cfg.Auth.SessionCookie)
	}
	if token == "" {
		return nil, errUnauthenticated("missing session token")
	}

	claims, err := auth.ValidateJWT(token)
	if err != nil {
		return nil, errUnauthenticated("invalid token")
	}

	session, err := sessions.GetSession(c.Request.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, errUnauthenticated("unknown session")
	}
	if session.IsExpired(time.Now()) {
		return nil, errUnauthenticated("session expired")
	}

	return &auth.Caller{
		TenantID: claims.Tenant(),
		UserID:   claims.UserID,
		Audit: auth.AuditContext{
			Location:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	}, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func setCaller(c *gin.Context, caller *auth.Caller) {
	c.Set(CallerKey, caller)
	c.Set(UserIDKey, caller.UserID)
	c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    procedure.CodeUnauthorized,
			"message": procedure.Unauthorized().Message,
		},
	})
}
