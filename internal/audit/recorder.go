package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/telemetry"
)

// Store persists audit log rows. Implemented by repositories.AuditRepository.
type Store interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Recorder is the production Sink: it writes the event to the store and then
// hands the stored row to the shipper. Shipper failures never fail Ingest.
type Recorder struct {
	store   Store
	shipper Shipper
}

// NewRecorder creates a Recorder. shipper may be nil.
func NewRecorder(store Store, shipper Shipper) *Recorder {
	return &Recorder{store: store, shipper: shipper}
}

// Ingest persists ev and ships it. It returns an error only when the store write fails.
func (r *Recorder) Ingest(ctx context.Context, ev Event) error {
	log := ev.ToLog()
	if err := r.store.CreateAuditLog(ctx, log); err != nil {
		telemetry.AuditIngestFailuresTotal.WithLabelValues("database").Inc()
		return fmt.Errorf("failed to store audit log: %w", err)
	}

	if r.shipper != nil {
		if err := r.shipper.Ship(ctx, log); err != nil {
			slog.WarnContext(ctx, "audit shipping failed",
				"event", log.Event, "audit_log_id", log.ID, "error", err)
		}
	}
	return nil
}
