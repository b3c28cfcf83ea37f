package procedure

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/telemetry"
)

// Definition describes one mutation. In is the decoded input, R the resource
// loaded during authorization, Out the result returned to the client.
type Definition[In, R, Out any] struct {
	// Name is the RPC name, e.g. "webhook.toggle".
	Name string

	// Failure completes "We are unable to ..." when Mutate fails.
	Failure string

	// Validate runs after struct tag validation and may normalise in. Optional.
	Validate func(in *In) error

	// Load looks up the owning resource and checks the caller's tenant.
	// It returns a NOT_FOUND *Error for missing or foreign resources.
	Load func(ctx context.Context, caller *auth.Caller, in *In) (R, error)

	// Mutate applies the single write.
	Mutate func(ctx context.Context, in *In, r R) (Out, error)

	// Audit describes the change. Actor and request context are filled in by Run.
	Audit func(in *In, r R, out Out) audit.Event
}

// Procedure is a runnable Definition bound to an audit sink.
type Procedure[In, R, Out any] struct {
	def          Definition[In, R, Out]
	sink         audit.Sink
	supportEmail string
}

// New binds def to sink. supportEmail is quoted in client-facing failure messages.
func New[In, R, Out any](def Definition[In, R, Out], sink audit.Sink, supportEmail string) *Procedure[In, R, Out] {
	if sink == nil {
		sink = audit.Discard
	}
	return &Procedure[In, R, Out]{def: def, sink: sink, supportEmail: supportEmail}
}

// Name returns the RPC name.
func (p *Procedure[In, R, Out]) Name() string { return p.def.Name }

// Run executes validate, load/authorize, mutate and audit in order. Nothing is
// written when validation or authorization fails; exactly one audit event is
// ingested after a successful write.
func (p *Procedure[In, R, Out]) Run(ctx context.Context, caller *auth.Caller, in In) (out Out, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "procedure "+p.def.Name,
		trace.WithAttributes(attribute.String("rpc.method", p.def.Name)))
	defer func() {
		code := CodeOf(err)
		telemetry.ProcedureCallsTotal.WithLabelValues(p.def.Name, string(code)).Inc()
		telemetry.ProcedureDuration.WithLabelValues(p.def.Name).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("procedure.code", string(code)))
		if code == CodeInternal {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, string(code))
			slog.ErrorContext(ctx, "procedure failed", "procedure", p.def.Name, "error", err)
		}
		span.End()
	}()

	var zero Out
	if !caller.Authenticated() {
		return zero, Unauthorized()
	}

	if err := ValidateStruct(&in); err != nil {
		return zero, err
	}
	if p.def.Validate != nil {
		if err := p.def.Validate(&in); err != nil {
			return zero, asBadRequest(err)
		}
	}

	r, err := p.def.Load(ctx, caller, &in)
	if err != nil {
		return zero, p.wrap(err, "load the requested resource")
	}

	out, err = p.def.Mutate(ctx, &in, r)
	if err != nil {
		return zero, p.wrap(err, p.def.Failure)
	}

	ev := p.def.Audit(&in, r, out)
	ev.Actor = audit.Actor{Type: audit.ActorTypeUser, ID: caller.UserID}
	ev.Context = audit.Context{Location: caller.Audit.Location, UserAgent: caller.Audit.UserAgent}
	if ierr := p.sink.Ingest(ctx, ev); ierr != nil {
		slog.ErrorContext(ctx, "audit ingest failed; mutation kept",
			"procedure", p.def.Name, "event", ev.Event, "workspace_id", ev.WorkspaceID, "error", ierr)
	}

	return out, nil
}

func (p *Procedure[In, R, Out]) wrap(err error, action string) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return Internal(action, p.supportEmail, err)
}

func asBadRequest(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return BadRequest(Issue{Message: err.Error()})
}

// RequireTenant returns a NOT_FOUND error naming what unless ws exists and
// belongs to the caller's tenant.
func RequireTenant(ws *models.Workspace, caller *auth.Caller, what, supportEmail string) error {
	if !ws.OwnedBy(caller.TenantID) {
		return NotFound(what, supportEmail)
	}
	return nil
}
