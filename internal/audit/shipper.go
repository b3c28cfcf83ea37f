package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/db/models"
	"github.com/keydash/dashboard/internal/safego"
	"github.com/keydash/dashboard/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// Shipper defines the interface for audit log shipping
type Shipper interface {
	// Ship sends a stored audit log entry to the destination
	Ship(ctx context.Context, entry *models.AuditLog) error
	// Close cleans up any resources
	Close() error
}

type namedShipper struct {
	name string
	Shipper
}

// MultiShipper ships to multiple destinations
type MultiShipper struct {
	shippers []namedShipper
	mu       sync.RWMutex
}

// Clients are the externally owned connections shippers publish through.
// Each is required only when a shipper of that type is enabled.
type Clients struct {
	Redis StreamClient
	NATS  Publisher
}

// NewMultiShipper creates a new multi-shipper from configs.
func NewMultiShipper(configs []config.AuditShipperConfig, clients Clients) (*MultiShipper, error) {
	ms := &MultiShipper{
		shippers: make([]namedShipper, 0),
	}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var shipper Shipper
		var err error

		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook shipper")
			}
			shipper, err = NewWebhookShipper(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file shipper")
			}
			shipper, err = NewFileShipper(cfg.File)
		case "redis":
			if clients.Redis == nil {
				return nil, fmt.Errorf("redis client is required for redis shipper")
			}
			shipper = NewRedisStreamShipper(clients.Redis, cfg.Redis)
		case "nats":
			if clients.NATS == nil {
				return nil, fmt.Errorf("nats connection is required for nats shipper")
			}
			shipper = NewNATSShipper(clients.NATS, cfg.NATS)
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}

		if err != nil {
			ms.Close()
			return nil, fmt.Errorf("failed to create %s shipper: %w", cfg.Type, err)
		}

		ms.shippers = append(ms.shippers, namedShipper{name: cfg.Type, Shipper: shipper})
	}

	return ms, nil
}

// Len returns the number of active shippers
func (ms *MultiShipper) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.shippers)
}

// Ship sends an entry to all configured shippers. Every shipper is attempted;
// the last error is returned.
func (ms *MultiShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, entry); err != nil {
			lastErr = err
			telemetry.AuditIngestFailuresTotal.WithLabelValues(s.name).Inc()
			slog.Warn("audit shipper error", "shipper", s.name, "error", err)
		}
	}
	return lastErr
}

// Close closes all shippers
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var lastErr error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ---------------------------------------------------------------------------
// Webhook
// ---------------------------------------------------------------------------

// WebhookShipper ships audit logs to a webhook
type WebhookShipper struct {
	cfg       *config.AuditWebhookConfig
	timeout   time.Duration
	client    *http.Client
	batchCh   chan *models.AuditLog
	batch     []*models.AuditLog
	batchMu   sync.Mutex
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a new webhook shipper
func NewWebhookShipper(cfg *config.AuditWebhookConfig) (*WebhookShipper, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     cfg,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		batchCh: make(chan *models.AuditLog, 1000),
		batch:   make([]*models.AuditLog, 0),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if cfg.BatchSize > 0 {
		safego.Go("audit-webhook-batches", ws.processBatches)
	} else {
		close(ws.doneCh)
	}

	return ws, nil
}

func (ws *WebhookShipper) flushInterval() time.Duration {
	if ws.cfg.FlushInterval > 0 {
		return time.Duration(ws.cfg.FlushInterval) * time.Second
	}
	return 5 * time.Second
}

// processBatches handles batched sending
func (ws *WebhookShipper) processBatches() {
	defer close(ws.doneCh)

	ticker := time.NewTicker(ws.flushInterval())
	defer ticker.Stop()

	for {
		select {
		case entry := <-ws.batchCh:
			ws.batchMu.Lock()
			ws.batch = append(ws.batch, entry)
			if len(ws.batch) >= ws.cfg.BatchSize {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ticker.C:
			ws.batchMu.Lock()
			ws.flushBatch()
			ws.batchMu.Unlock()
		case <-ws.closeCh:
			ws.batchMu.Lock()
			for {
				select {
				case entry := <-ws.batchCh:
					ws.batch = append(ws.batch, entry)
					continue
				default:
				}
				break
			}
			ws.flushBatch()
			ws.batchMu.Unlock()
			return
		}
	}
}

// flushBatch sends the current batch. Caller holds batchMu.
func (ws *WebhookShipper) flushBatch() {
	if len(ws.batch) == 0 {
		return
	}

	data, err := json.Marshal(ws.batch)
	if err != nil {
		slog.Error("failed to marshal audit batch", "error", err)
		ws.batch = ws.batch[:0]
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.timeout)
	defer cancel()

	if err := ws.sendRequest(ctx, data); err != nil {
		telemetry.AuditIngestFailuresTotal.WithLabelValues("webhook").Add(float64(len(ws.batch)))
		slog.Warn("failed to send audit batch", "entries", len(ws.batch), "error", err)
	}

	ws.batch = ws.batch[:0]
}

// Ship sends an entry to the webhook
func (ws *WebhookShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.batchCh <- entry:
			return nil
		default:
			// Channel full, send directly
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	return ws.sendRequest(ctx, data)
}

func (ws *WebhookShipper) sendRequest(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close flushes any batched entries and stops the batch processor
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closeCh)
	})
	<-ws.doneCh
	return nil
}

// ---------------------------------------------------------------------------
// File
// ---------------------------------------------------------------------------

// FileShipper appends audit logs as JSON lines to a file with size-based rotation
type FileShipper struct {
	cfg  *config.AuditFileConfig
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper creates a new file shipper
func NewFileShipper(cfg *config.AuditFileConfig) (*FileShipper, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &FileShipper{
		cfg:  cfg,
		file: file,
	}, nil
}

// Ship writes an entry to the file
func (fs *FileShipper) Ship(_ context.Context, entry *models.AuditLog) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		info, err := fs.file.Stat()
		if err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)*1024*1024 {
			if err := fs.rotate(); err != nil {
				return fmt.Errorf("failed to rotate audit log: %w", err)
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and reopens path
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	if fs.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups))
	}
	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fs.cfg.Path, i), fmt.Sprintf("%s.%d", fs.cfg.Path, i+1))
	}
	if fs.cfg.MaxBackups > 0 {
		_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")
	} else {
		_ = os.Remove(fs.cfg.Path)
	}

	file, err := os.OpenFile(fs.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	fs.file = file
	return nil
}

// Close closes the file
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}

// ---------------------------------------------------------------------------
// Redis stream
// ---------------------------------------------------------------------------

// DefaultStream is the redis stream audit entries are appended to when none is configured.
const DefaultStream = "keydash:audit"

// StreamClient is the subset of the go-redis client used by RedisStreamShipper.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamShipper appends audit entries to a redis stream with XADD
type RedisStreamShipper struct {
	client StreamClient
	stream string
	maxLen int64
}

// NewRedisStreamShipper creates a redis stream shipper. cfg may be nil.
func NewRedisStreamShipper(client StreamClient, cfg *config.AuditRedisConfig) *RedisStreamShipper {
	s := &RedisStreamShipper{client: client, stream: DefaultStream}
	if cfg != nil {
		if cfg.Stream != "" {
			s.stream = cfg.Stream
		}
		s.maxLen = cfg.MaxLen
	}
	return s
}

// Ship appends the entry to the stream. Entries are trimmed approximately to maxLen when set.
func (s *RedisStreamShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":           entry.ID,
			"workspace_id": entry.WorkspaceID,
			"event":        entry.Event,
			"payload":      string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (s *RedisStreamShipper) Close() error { return nil }
