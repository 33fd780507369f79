package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
)

type fakeSource struct {
	snapshot goAccount.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAccount.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters: map[goAccount.MetricID]uint64{
				goAccount.MetricLoginSuccess:      7,
				goAccount.MetricActivationSuccess: 2,
			},
			Histograms: map[goAccount.MetricID][]uint64{
				goAccount.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goaccount_login_success_total 7",
		"goaccount_activation_success_total 2",
		"goaccount_signup_success_total 0",
		"# TYPE goaccount_login_latency_seconds histogram",
		"goaccount_login_latency_seconds_bucket{le=\"0.01\"} 1",
		"goaccount_login_latency_seconds_bucket{le=\"+Inf\"} 36",
		"goaccount_login_latency_seconds_count 36",
		"goaccount_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsHistogramWithoutLatency(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{goAccount.MetricLogout: 1},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("expected no histogram when latency is disabled, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{goAccount.MetricLoginSuccess: 1},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
