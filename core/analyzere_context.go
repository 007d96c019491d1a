package core

import (
	"context"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
	configfile "github.com/analyzere/analyzere-go/internal/providers/config/file"
)

func NewContextService(opts BootstrapConfig) config.ContextService {
	return configfile.NewFileContextService(opts.ContextCatalogPath)
}

// NewAnalyzeReContext resolves the selected context from the catalog and
// builds a client for it.
func NewAnalyzeReContext(
	ctx context.Context,
	opts BootstrapConfig,
	selection config.ContextSelection,
) (AnalyzeReContext, error) {
	contextService := NewContextService(opts)
	resolved, err := resolveContext(ctx, contextService, selection)
	if err != nil {
		return AnalyzeReContext{}, err
	}

	built, err := buildClient(resolved.Client, opts)
	if err != nil {
		return AnalyzeReContext{}, err
	}
	built.Contexts = contextService
	built.Context = resolved
	return built, nil
}

// NewAnalyzeReClient builds a client straight from cfg, without a catalog.
func NewAnalyzeReClient(cfg config.Client, opts BootstrapConfig) (AnalyzeReContext, error) {
	built, err := buildClient(cfg, opts)
	if err != nil {
		return AnalyzeReContext{}, err
	}
	built.Context = config.Context{Client: cfg.WithDefaults()}
	return built, nil
}

func resolveContext(
	ctx context.Context,
	contextService config.ContextService,
	selection config.ContextSelection,
) (config.Context, error) {
	if contextService == nil {
		return config.Context{}, faults.NewTypedError(faults.ValidationError, "context service must not be nil", nil)
	}
	return contextService.ResolveContext(ctx, selection)
}
