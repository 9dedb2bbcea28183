package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Runtime is the process-level configuration read from the environment.
type Runtime struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	TracingEnabled     bool    `env:"SAMPLER_TRACING_ENABLED" envDefault:"false"`
	TracingExporter    string  `env:"SAMPLER_TRACING_EXPORTER" envDefault:"stdout"`
	TracingEndpoint    string  `env:"SAMPLER_OTLP_ENDPOINT"`
	TracingServiceName string  `env:"SAMPLER_TRACING_SERVICE_NAME" envDefault:"surface-sampler"`
	TracingSampleRatio float64 `env:"SAMPLER_TRACING_SAMPLE_RATIO" envDefault:"1"`

	// MetricsAddr and GRPCAddr are disabled when empty.
	MetricsAddr string `env:"SAMPLER_METRICS_ADDR"`
	GRPCAddr    string `env:"SAMPLER_GRPC_ADDR"`
}

// LoadRuntime parses Runtime from the process environment.
func LoadRuntime() (Runtime, error) {
	return parseRuntime(env.Options{})
}

func parseRuntime(opts env.Options) (Runtime, error) {
	var rt Runtime
	if err := env.ParseWithOptions(&rt, opts); err != nil {
		return rt, fmt.Errorf("parse runtime env: %w", err)
	}
	if rt.TracingSampleRatio < 0 || rt.TracingSampleRatio > 1 {
		return rt, fmt.Errorf("SAMPLER_TRACING_SAMPLE_RATIO must be within [0,1], got %v", rt.TracingSampleRatio)
	}
	return rt, nil
}
