package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("NewSamplerCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/sampler.v1.InstrumentService/Deploy"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("InstrumentService", "Deploy", "OK")); got != 1 {
		t.Fatalf("sampler_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "sampler_rpc_duration_seconds", map[string]string{
		"service": "InstrumentService",
		"method":  "Deploy",
	}); count != 1 {
		t.Fatalf("sampler_rpc_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("NewSamplerCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/sampler.v1.InstrumentService/Transmit"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.FailedPrecondition, "no transmitter")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("InstrumentService", "Transmit", "FailedPrecondition")); got != 1 {
		t.Fatalf("sampler_rpc_requests_total error label = %v, want 1", got)
	}
}

func TestRecorderMethods(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("NewSamplerCollector: %v", err)
	}

	collector.ObserveDeploy("ok")
	collector.ObserveDeploy("ok")
	collector.ObserveDeploy("capacity")
	collector.ObserveOperation("transmit", "no_transmitter")
	collector.ObserveTimer(2 * time.Second)
	collector.SetRecordsHeld(1)
	collector.SetScheduledTimers(3)

	if got := testutil.ToFloat64(collector.DeployAttempts.WithLabelValues("ok")); got != 2 {
		t.Fatalf("sampler_deploy_attempts_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.DeployAttempts.WithLabelValues("capacity")); got != 1 {
		t.Fatalf("sampler_deploy_attempts_total{capacity} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Operations.WithLabelValues("transmit", "no_transmitter")); got != 1 {
		t.Fatalf("sampler_record_operations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RecordsHeld); got != 1 {
		t.Fatalf("sampler_records_held = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ScheduledTimers); got != 3 {
		t.Fatalf("sampler_scheduled_timers = %v, want 3", got)
	}
	if count := histogramSampleCount(t, reg, "sampler_deploy_timer_seconds", nil); count != 1 {
		t.Fatalf("sampler_deploy_timer_seconds sample_count = %d, want 1", count)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SamplerCollector
	c.ObserveDeploy("ok")
	c.ObserveOperation("dump", "ok")
	c.ObserveTimer(time.Second)
	c.SetRecordsHeld(1)
	c.SetScheduledTimers(1)
}

func TestRegisteringTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("NewSamplerCollector: %v", err)
	}
	second, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("second NewSamplerCollector: %v", err)
	}
	second.ObserveDeploy("ok")
	if got := testutil.ToFloat64(first.DeployAttempts.WithLabelValues("ok")); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestMetricsHandlerExposesSamplerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSamplerCollector(reg)
	if err != nil {
		t.Fatalf("NewSamplerCollector: %v", err)
	}
	collector.SetRecordsHeld(1)
	collector.ObserveDeploy("ok")
	collector.ObserveOperation("discard", "ok")
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sampler_rpc_requests_total",
		"sampler_rpc_duration_seconds",
		"sampler_deploy_attempts_total",
		"sampler_record_operations_total",
		"sampler_records_held 1",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"/sampler.v1.InstrumentService/Deploy": {"InstrumentService", "Deploy"},
		"InstrumentService/Reset":              {"InstrumentService", "Reset"},
		"":                                     {"unknown", "unknown"},
		"/broken":                              {"unknown", "unknown"},
	}
	for in, want := range cases {
		service, method := SplitMethod(in)
		if service != want[0] || method != want[1] {
			t.Fatalf("SplitMethod(%q) = (%q, %q), want (%q, %q)", in, service, method, want[0], want[1])
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
