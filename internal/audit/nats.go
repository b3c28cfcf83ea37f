package audit

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/db/models"
)

// DefaultSubject is the NATS subject prefix audit entries are published under
// when none is configured. The event name is appended, e.g. "keydash.audit.key.update".
const DefaultSubject = "keydash.audit"

// Publisher is the subset of *nats.Conn used by NATSShipper.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATSShipper publishes msgpack-encoded audit entries to NATS.
type NATSShipper struct {
	pub     Publisher
	subject string
}

// NewNATSShipper creates a NATS shipper. cfg may be nil.
func NewNATSShipper(pub Publisher, cfg *config.AuditNATSConfig) *NATSShipper {
	s := &NATSShipper{pub: pub, subject: DefaultSubject}
	if cfg != nil && cfg.Subject != "" {
		s.subject = cfg.Subject
	}
	return s
}

// Subject returns the subject entry is published on.
func (s *NATSShipper) Subject(entry *models.AuditLog) string {
	return s.subject + "." + entry.Event
}

// Ship publishes the entry. Delivery is at-most-once; the database row remains
// the source of truth.
func (s *NATSShipper) Ship(_ context.Context, entry *models.AuditLog) error {
	payload, err := EncodeMsgpack(entry)
	if err != nil {
		return err
	}
	subj := s.Subject(entry)
	if err := s.pub.Publish(subj, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	return nil
}

// Close is a no-op; the connection is owned by the caller.
func (s *NATSShipper) Close() error { return nil }

// EncodeMsgpack encodes entry with its json field names so NATS consumers see
// the same keys as webhook and file consumers.
func EncodeMsgpack(entry *models.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("failed to encode audit entry: %w", err)
	}
	return buf.Bytes(), nil
}
