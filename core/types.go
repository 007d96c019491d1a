package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/internal/metrics"
	"github.com/analyzere/analyzere-go/server"
)

// AnalyzeReContext is everything built from one resolved context.
type AnalyzeReContext struct {
	Contexts  config.ContextService
	Context   config.Context
	Requester server.Requester
	Tokens    server.AccessTokenProvider
	Client    *client.Client
	Metrics   *metrics.Recorder
}

type BootstrapConfig struct {
	ContextCatalogPath string

	// Registerer receives the client metrics. Nil disables them.
	Registerer prometheus.Registerer
	// TracerProvider defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}
