package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue reads the current value of one labelled series of a CounterVec.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

// ---------------------------------------------------------------------------
// Registration checks use Describe() rather than Gather(): *Vec metrics with
// no observed label combinations are absent from Gather output.
// ---------------------------------------------------------------------------

func TestMetrics_AllRegistered(t *testing.T) {
	type describer interface {
		Describe(chan<- *prometheus.Desc)
	}

	cases := []struct {
		name string
		c    describer
	}{
		{"http_requests_total", HTTPRequestsTotal},
		{"http_request_duration_seconds", HTTPRequestDuration},
		{"procedure_calls_total", ProcedureCallsTotal},
		{"procedure_duration_seconds", ProcedureDuration},
		{"audit_ingest_failures_total", AuditIngestFailuresTotal},
		{"rate_limit_rejections_total", RateLimitRejectionsTotal},
		{"reaper_deleted_rows_total", ReaperDeletedTotal},
		{"db_open_connections", DBOpenConnections},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)
			for desc := range ch {
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					return
				}
			}
			t.Errorf("metric %q: Describe() returned no descriptor with this fqName", tc.name)
		})
	}
}

func TestMetrics_AlreadyRegisteredWithDefaultRegistry(t *testing.T) {
	err := prometheus.Register(ProcedureCallsTotal)
	if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
		t.Errorf("Register(ProcedureCallsTotal) = %v, want AlreadyRegisteredError", err)
	}
}

func TestMetrics_ProcedureCallsTotal_CanBeIncremented(t *testing.T) {
	before := counterValue(t, ProcedureCallsTotal, "test.procedure", "NOT_FOUND")
	ProcedureCallsTotal.WithLabelValues("test.procedure", "NOT_FOUND").Inc()
	if got := counterValue(t, ProcedureCallsTotal, "test.procedure", "NOT_FOUND"); got != before+1 {
		t.Errorf("procedure_calls_total = %v, want %v", got, before+1)
	}
}

func TestMetrics_ProcedureDuration_CanBeObserved(t *testing.T) {
	ProcedureDuration.WithLabelValues("test.procedure").Observe(0.012)
}

func TestMetrics_AuditIngestFailures_CanBeIncremented(t *testing.T) {
	before := counterValue(t, AuditIngestFailuresTotal, "test")
	AuditIngestFailuresTotal.WithLabelValues("test").Add(2)
	if got := counterValue(t, AuditIngestFailuresTotal, "test"); got != before+2 {
		t.Errorf("audit_ingest_failures_total = %v, want %v", got, before+2)
	}
}

func TestMetrics_RateLimitAndReaper_CanBeIncremented(t *testing.T) {
	RateLimitRejectionsTotal.WithLabelValues("memory").Inc()
	ReaperDeletedTotal.WithLabelValues("sessions").Add(3)
	if got := counterValue(t, ReaperDeletedTotal, "sessions"); got < 3 {
		t.Errorf("reaper_deleted_rows_total{table=sessions} = %v, want >= 3", got)
	}
}

func TestMetrics_DBOpenConnections_CanBeSet(t *testing.T) {
	DBOpenConnections.Set(5)
	m := &dto.Metric{}
	if err := DBOpenConnections.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetGauge().GetValue() != 5 {
		t.Errorf("db_open_connections = %v, want 5", m.GetGauge().GetValue())
	}
	DBOpenConnections.Set(0)
}
