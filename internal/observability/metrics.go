package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// SamplerCollector bundles Prometheus metrics for the sampling instrument
// and its remote operator surface.
type SamplerCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	DeployAttempts  *prometheus.CounterVec
	Operations      *prometheus.CounterVec
	DeployTimer     prometheus.Histogram
	RecordsHeld     prometheus.Gauge
	ScheduledTimers prometheus.Gauge
}

// NewSamplerCollector registers sampler metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSamplerCollector(reg prometheus.Registerer) (*SamplerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampler_rpc_requests_total",
		Help: "Total number of handled operator RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "sampler_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sampler_rpc_duration_seconds",
		Help:    "Operator RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "sampler_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	deploys, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampler_deploy_attempts_total",
		Help: "Deploy attempts, labeled by outcome.",
	}, []string{"outcome"}), "sampler_deploy_attempts_total")
	if err != nil {
		return nil, err
	}

	ops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sampler_record_operations_total",
		Help: "Record lifecycle operations, labeled by operation and outcome.",
	}, []string{"op", "outcome"}), "sampler_record_operations_total")
	if err != nil {
		return nil, err
	}

	timer, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sampler_deploy_timer_seconds",
		Help:    "Simulated duration of completed deploy timers.",
		Buckets: []float64{0.5, 1, 2, 3, 5, 10, 30},
	}), "sampler_deploy_timer_seconds")
	if err != nil {
		return nil, err
	}

	held, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sampler_records_held",
		Help: "Number of records currently held by the instrument.",
	}), "sampler_records_held")
	if err != nil {
		return nil, err
	}

	scheduled, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sampler_scheduled_timers",
		Help: "Number of timers waiting in the event scheduler.",
	}), "sampler_scheduled_timers")
	if err != nil {
		return nil, err
	}

	return &SamplerCollector{
		gatherer:        gatherer,
		RPCRequests:     requests,
		RPCDurations:    durations,
		DeployAttempts:  deploys,
		Operations:      ops,
		DeployTimer:     timer,
		RecordsHeld:     held,
		ScheduledTimers: scheduled,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SamplerCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SamplerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveDeploy counts a deploy attempt.
func (c *SamplerCollector) ObserveDeploy(outcome string) {
	if c == nil || c.DeployAttempts == nil {
		return
	}
	c.DeployAttempts.WithLabelValues(outcome).Inc()
}

// ObserveOperation counts a record lifecycle operation.
func (c *SamplerCollector) ObserveOperation(op, outcome string) {
	if c == nil || c.Operations == nil {
		return
	}
	c.Operations.WithLabelValues(op, outcome).Inc()
}

// ObserveTimer records a completed deploy timer.
func (c *SamplerCollector) ObserveTimer(d time.Duration) {
	if c == nil || c.DeployTimer == nil {
		return
	}
	c.DeployTimer.Observe(d.Seconds())
}

// SetRecordsHeld updates the held records gauge.
func (c *SamplerCollector) SetRecordsHeld(n int) {
	if c == nil || c.RecordsHeld == nil {
		return
	}
	c.RecordsHeld.Set(float64(n))
}

// SetScheduledTimers updates the scheduler depth gauge.
func (c *SamplerCollector) SetScheduledTimers(n int) {
	if c == nil || c.ScheduledTimers == nil {
		return
	}
	c.ScheduledTimers.Set(float64(n))
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
