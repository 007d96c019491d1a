package core

import (
	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/internal/metrics"
	httpserver "github.com/analyzere/analyzere-go/internal/providers/server/http"
)

func buildClient(cfg config.Client, opts BootstrapConfig) (AnalyzeReContext, error) {
	cfg = cfg.WithDefaults()

	var recorder *metrics.Recorder
	if opts.Registerer != nil {
		var err error
		recorder, err = metrics.New(opts.Registerer)
		if err != nil {
			return AnalyzeReContext{}, err
		}
	}

	gatewayOptions := []httpserver.GatewayOption{httpserver.WithMetrics(recorder)}
	if opts.TracerProvider != nil {
		gatewayOptions = append(gatewayOptions, httpserver.WithTracerProvider(opts.TracerProvider))
	}
	gateway, err := httpserver.NewGateway(cfg, gatewayOptions...)
	if err != nil {
		return AnalyzeReContext{}, err
	}

	clientOptions := []client.Option{client.WithMetrics(recorder)}
	if cfg.Upload != nil {
		clientOptions = append(clientOptions, client.WithUploadDefaults(*cfg.Upload))
	}

	return AnalyzeReContext{
		Requester: gateway,
		Tokens:    gateway,
		Client:    client.New(gateway, clientOptions...),
		Metrics:   recorder,
	}, nil
}
