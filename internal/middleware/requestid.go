package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the request ID string.
	RequestIDKey = "request_id"

	maxRequestIDLen = 128
)

// RequestIDMiddleware ensures every request carries an X-Request-ID.
//
// An inbound X-Request-ID (from a load balancer or the dashboard frontend) is
// reused when it is at most 128 characters of [A-Za-z0-9._:-]; otherwise a
// UUID v4 is generated. The ID is stored under
// RequestIDKey and echoed in the response header so clients can correlate a
// failed procedure call with the server log line:
//
//	id := c.GetString(middleware.RequestIDKey)
//
// Register it first so every later middleware can log the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
