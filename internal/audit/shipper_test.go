package audit_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/db/models"
)

func sampleEntry(event string) *models.AuditLog {
	return &models.AuditLog{
		ID:          "log_1",
		WorkspaceID: "ws_1",
		ActorType:   audit.ActorTypeUser,
		ActorID:     "user_1",
		Event:       event,
		Description: "Disabled wh_1",
		Resources:   models.AuditResources{{Type: "webhook", ID: "wh_1"}},
		CreatedAt:   time.Now().UTC(),
	}
}

// fakeStream records XADD calls and optionally fails them.
type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

// ---------------------------------------------------------------------------
// MultiShipper via NewMultiShipper factory
// ---------------------------------------------------------------------------

func TestNewMultiShipper_Empty(t *testing.T) {
	ms, err := audit.NewMultiShipper(nil, audit.Clients{})
	if err != nil {
		t.Fatalf("NewMultiShipper(nil) error: %v", err)
	}
	if ms.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ms.Len())
	}
	if err := ms.Ship(context.Background(), sampleEntry("test")); err != nil {
		t.Errorf("Ship() on empty multi-shipper = %v, want nil", err)
	}
	if err := ms.Close(); err != nil {
		t.Errorf("Close() on empty multi-shipper = %v, want nil", err)
	}
}

func TestNewMultiShipper_DisabledConfigSkipped(t *testing.T) {
	cfgs := []config.AuditShipperConfig{
		{Enabled: false, Type: "webhook", Webhook: &config.AuditWebhookConfig{URL: "http://example.com"}},
	}
	ms, err := audit.NewMultiShipper(cfgs, audit.Clients{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ms.Len())
	}
}

func TestNewMultiShipper_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuditShipperConfig
	}{
		{"unknown type", config.AuditShipperConfig{Enabled: true, Type: "foobar"}},
		{"webhook nil config", config.AuditShipperConfig{Enabled: true, Type: "webhook"}},
		{"file nil config", config.AuditShipperConfig{Enabled: true, Type: "file"}},
		{"redis without client", config.AuditShipperConfig{Enabled: true, Type: "redis"}},
		{"nats without connection", config.AuditShipperConfig{Enabled: true, Type: "nats"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := audit.NewMultiShipper([]config.AuditShipperConfig{tt.cfg}, audit.Clients{}); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewMultiShipper_RedisWithClient(t *testing.T) {
	stream := &fakeStream{}
	ms, err := audit.NewMultiShipper([]config.AuditShipperConfig{
		{Enabled: true, Type: "redis", Redis: &config.AuditRedisConfig{Stream: "audit"}},
	}, audit.Clients{Redis: stream})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ms.Ship(context.Background(), sampleEntry("key.update")); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}
	if len(stream.calls) != 1 || stream.calls[0].Stream != "audit" {
		t.Errorf("XADD calls = %+v", stream.calls)
	}
}

func TestMultiShipper_ContinuesAfterShipperError(t *testing.T) {
	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv1.Close()

	var srv2Count int32
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&srv2Count, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv2.Close()

	cfgs := []config.AuditShipperConfig{
		{Enabled: true, Type: "webhook", Webhook: &config.AuditWebhookConfig{URL: srv1.URL, TimeoutSecs: 1}},
		{Enabled: true, Type: "webhook", Webhook: &config.AuditWebhookConfig{URL: srv2.URL, TimeoutSecs: 1}},
	}
	ms, err := audit.NewMultiShipper(cfgs, audit.Clients{})
	if err != nil {
		t.Fatalf("NewMultiShipper error: %v", err)
	}
	defer ms.Close()

	if err := ms.Ship(context.Background(), sampleEntry("test")); err == nil {
		t.Error("Ship() = nil, want error from first shipper")
	}
	if atomic.LoadInt32(&srv2Count) != 1 {
		t.Errorf("second shipper received %d calls, want 1", srv2Count)
	}
}

// ---------------------------------------------------------------------------
// WebhookShipper
// ---------------------------------------------------------------------------

func TestNewWebhookShipper_RequiresURL(t *testing.T) {
	if _, err := audit.NewWebhookShipper(&config.AuditWebhookConfig{}); err == nil {
		t.Error("expected error for empty url, got nil")
	}
}

func TestWebhookShipper_ShipEntry(t *testing.T) {
	var received bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		received.ReadFrom(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ws, err := audit.NewWebhookShipper(&config.AuditWebhookConfig{URL: srv.URL, TimeoutSecs: 5})
	if err != nil {
		t.Fatalf("NewWebhookShipper error: %v", err)
	}
	defer ws.Close()

	entry := sampleEntry("webhook.update")
	if err := ws.Ship(context.Background(), entry); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}

	var decoded models.AuditLog
	if err := json.Unmarshal(received.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if decoded.Event != entry.Event || decoded.WorkspaceID != entry.WorkspaceID {
		t.Errorf("decoded = %+v, want event %q in %q", decoded, entry.Event, entry.WorkspaceID)
	}
	if len(decoded.Resources) != 1 || decoded.Resources[0].ID != "wh_1" {
		t.Errorf("Resources = %+v", decoded.Resources)
	}
}

func TestWebhookShipper_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws, _ := audit.NewWebhookShipper(&config.AuditWebhookConfig{URL: srv.URL, TimeoutSecs: 5})
	defer ws.Close()

	if err := ws.Ship(context.Background(), sampleEntry("err")); err == nil {
		t.Error("Ship() = nil, want error for 500 response")
	}
}

func TestWebhookShipper_CustomHeader(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ws, _ := audit.NewWebhookShipper(&config.AuditWebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth-Token": "secret"},
	})
	defer ws.Close()

	if err := ws.Ship(context.Background(), sampleEntry("header.test")); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}
	if gotToken != "secret" {
		t.Errorf("X-Auth-Token = %q, want secret", gotToken)
	}
}

func TestWebhookShipper_CloseTwice(t *testing.T) {
	ws, err := audit.NewWebhookShipper(&config.AuditWebhookConfig{URL: "http://localhost:0"})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	ws.Close()
}

func TestWebhookShipper_BatchedShip(t *testing.T) {
	done := make(chan []models.AuditLog, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []models.AuditLog
		_ = json.NewDecoder(r.Body).Decode(&batch)
		w.WriteHeader(http.StatusOK)
		done <- batch
	}))
	defer srv.Close()

	ws, err := audit.NewWebhookShipper(&config.AuditWebhookConfig{
		URL:           srv.URL,
		BatchSize:     1,
		FlushInterval: 5,
	})
	if err != nil {
		t.Fatalf("NewWebhookShipper error: %v", err)
	}
	defer ws.Close()

	if err := ws.Ship(context.Background(), sampleEntry("batch-1")); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}

	select {
	case batch := <-done:
		if len(batch) != 1 || batch[0].Event != "batch-1" {
			t.Errorf("batch = %+v", batch)
		}
	case <-time.After(3 * time.Second):
		t.Error("timed out waiting for batch to be sent to server")
	}
}

func TestWebhookShipper_BatchFlushOnClose(t *testing.T) {
	done := make(chan struct{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer srv.Close()

	ws, _ := audit.NewWebhookShipper(&config.AuditWebhookConfig{
		URL:           srv.URL,
		BatchSize:     100,
		FlushInterval: 60,
	})

	ws.Ship(context.Background(), sampleEntry("flush-on-close"))
	// Close drains the queue and flushes before returning.
	ws.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Error("timed out waiting for close-triggered flush")
	}
}

// ---------------------------------------------------------------------------
// FileShipper
// ---------------------------------------------------------------------------

func TestFileShipper_ShipEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	fs, err := audit.NewFileShipper(&config.AuditFileConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileShipper error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := fs.Ship(context.Background(), sampleEntry("key.update")); err != nil {
			t.Fatalf("Ship() error: %v", err)
		}
	}
	if err := fs.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	count := 0
	for scanner.Scan() {
		var decoded models.AuditLog
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d: %v", count, err)
		}
		if decoded.Event != "key.update" {
			t.Errorf("line %d event = %q", count, decoded.Event)
		}
		count++
	}
	if count != 5 {
		t.Errorf("file has %d lines, want 5", count)
	}
}

func TestNewFileShipper_InvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodir", "audit.log")
	if _, err := audit.NewFileShipper(&config.AuditFileConfig{Path: path}); err == nil {
		t.Error("expected error for path with nonexistent parent, got nil")
	}
}

func TestFileShipper_Rotate(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	// Just over 1MB so the next Ship rotates.
	if err := os.WriteFile(logPath, make([]byte, 1*1024*1024+1), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fs, err := audit.NewFileShipper(&config.AuditFileConfig{Path: logPath, MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileShipper: %v", err)
	}
	defer fs.Close()

	if err := fs.Ship(context.Background(), sampleEntry("after-rotate")); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("log file missing after rotation: %v", err)
	}
	if info.Size() > 1024 {
		t.Errorf("live file size = %d, want a single entry", info.Size())
	}
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("backup .1 missing after rotation: %v", err)
	}
}

// ---------------------------------------------------------------------------
// RedisStreamShipper
// ---------------------------------------------------------------------------

func TestRedisStreamShipper_Defaults(t *testing.T) {
	stream := &fakeStream{}
	s := audit.NewRedisStreamShipper(stream, nil)

	if err := s.Ship(context.Background(), sampleEntry("webhook.update")); err != nil {
		t.Fatalf("Ship() error: %v", err)
	}
	if len(stream.calls) != 1 {
		t.Fatalf("XADD calls = %d, want 1", len(stream.calls))
	}
	args := stream.calls[0]
	if args.Stream != audit.DefaultStream {
		t.Errorf("Stream = %q, want %q", args.Stream, audit.DefaultStream)
	}
	if args.MaxLen != 0 {
		t.Errorf("MaxLen = %d, want 0", args.MaxLen)
	}
	values := args.Values.(map[string]any)
	if values["event"] != "webhook.update" || values["workspace_id"] != "ws_1" {
		t.Errorf("Values = %+v", values)
	}
	var decoded models.AuditLog
	if err := json.Unmarshal([]byte(values["payload"].(string)), &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.ID != "log_1" {
		t.Errorf("payload id = %q, want log_1", decoded.ID)
	}
}

func TestRedisStreamShipper_MaxLenAndError(t *testing.T) {
	stream := &fakeStream{err: errors.New("connection refused")}
	s := audit.NewRedisStreamShipper(stream, &config.AuditRedisConfig{Stream: "audit", MaxLen: 1000})

	if err := s.Ship(context.Background(), sampleEntry("key.update")); err == nil {
		t.Error("Ship() = nil, want error")
	}
	if stream.calls[0].MaxLen != 1000 || !stream.calls[0].Approx {
		t.Errorf("trim args = %d approx=%v, want 1000 approx", stream.calls[0].MaxLen, stream.calls[0].Approx)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
