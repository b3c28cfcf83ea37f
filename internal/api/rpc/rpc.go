// Package rpc exposes procedures over HTTP using a tRPC-compatible envelope:
//
//	POST /trpc/<procedure>   body: input JSON
//	200 {"result":{"data":<output>}}
//	4xx/5xx {"error":{"code":"NOT_FOUND","message":"...","issues":[...]}}
//
// Handlers are generic over the procedure's input and output types, so each
// procedure decodes straight into its typed input struct.
package rpc

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/procedure"
)

// Runner is a callable procedure. *procedure.Procedure satisfies it.
type Runner[In, Out any] interface {
	Name() string
	Run(ctx context.Context, caller *auth.Caller, in In) (Out, error)
}

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Code    procedure.Code    `json:"code"`
	Message string            `json:"message"`
	Issues  []procedure.Issue `json:"issues,omitempty"`
}

// Handle returns a gin handler that decodes the request body into In, runs p
// with the caller resolved by the auth middleware, and writes the envelope.
func Handle[In, Out any](p Runner[In, Out]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			WriteError(c, procedure.BadRequest(procedure.Issue{Message: "Invalid JSON body"}))
			return
		}

		out, err := p.Run(c.Request.Context(), auth.CallerFromContext(c.Request.Context()), in)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": gin.H{"data": out}})
	}
}

// WriteError renders err in the error envelope. Errors that are not
// *procedure.Error are reported as an opaque internal error.
func WriteError(c *gin.Context, err error) {
	_ = c.Error(err)

	var pe *procedure.Error
	if !errors.As(err, &pe) {
		pe = &procedure.Error{Code: procedure.CodeInternal, Message: "Internal server error"}
	}
	c.AbortWithStatusJSON(pe.Code.HTTPStatus(), gin.H{"error": ErrorBody{
		Code:    pe.Code,
		Message: pe.Message,
		Issues:  pe.Issues,
	}})
}

// Registry dispatches POST /trpc/:procedure to the registered handlers.
type Registry struct {
	handlers map[string]gin.HandlerFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]gin.HandlerFunc)}
}

// Register adds p under its own name. Registering a name twice panics.
func Register[In, R, Out any](r *Registry, p *procedure.Procedure[In, R, Out]) {
	RegisterRunner[In, Out](r, p)
}

// RegisterRunner is Register for any Runner.
func RegisterRunner[In, Out any](r *Registry, p Runner[In, Out]) {
	name := p.Name()
	if _, dup := r.handlers[name]; dup {
		panic("rpc: duplicate procedure " + name)
	}
	r.handlers[name] = Handle(p)
}

// Len returns the number of registered procedures.
func (r *Registry) Len() int { return len(r.handlers) }

// Dispatch is the handler for the ":procedure" route.
func (r *Registry) Dispatch(c *gin.Context) {
	h, ok := r.handlers[c.Param("procedure")]
	if !ok {
		WriteError(c, &procedure.Error{
			Code:    procedure.CodeNotFound,
			Message: "No procedure found on path \"" + c.Param("procedure") + "\"",
		})
		return
	}
	h(c)
}
