package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"trafficreg/internal/platform/config"
	"trafficreg/internal/platform/otel"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
	}{
		{"no endpoint is a no-op", config.TracingConfig{Enabled: true, ServiceName: "trafficreg"}},
		{"disabled is a no-op", config.TracingConfig{Endpoint: "http://localhost:4318", ServiceName: "trafficreg"}},
		// 192.0.2.0/24 is reserved, nothing is exported.
		{"endpoint installs a provider", config.TracingConfig{
			Enabled: true, Endpoint: "http://192.0.2.1:4318", ServiceName: "trafficreg", SampleRatio: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := otel.Setup(context.Background(), tt.cfg)
			require.NoError(t, err)
			require.NoError(t, shutdown(context.Background()))
		})
	}
}
