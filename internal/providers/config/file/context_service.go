package file

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
)

var _ config.ContextService = (*FileContextService)(nil)

// FileContextService reads named client configurations from a YAML catalog.
type FileContextService struct {
	contextCatalogPath string
}

func NewFileContextService(path string) *FileContextService {
	return &FileContextService{contextCatalogPath: path}
}

func (m *FileContextService) List(_ context.Context) ([]config.Context, error) {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return nil, err
	}

	contexts := make([]config.Context, len(contextCatalog.Contexts))
	copy(contexts, contextCatalog.Contexts)
	return contexts, nil
}

func (m *FileContextService) GetCurrent(ctx context.Context) (config.Context, error) {
	return m.ResolveContext(ctx, config.ContextSelection{})
}

// ResolveContext returns the selected context (or the catalog's current one)
// with defaults applied and the client configuration validated.
func (m *FileContextService) ResolveContext(_ context.Context, selection config.ContextSelection) (config.Context, error) {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return config.Context{}, err
	}

	effectiveName := selection.Name
	if effectiveName == "" {
		effectiveName = contextCatalog.CurrentCtx
	}
	if effectiveName == "" {
		return config.Context{}, validationError("current context not set", nil)
	}

	idx := findContextIndex(contextCatalog.Contexts, effectiveName)
	if idx < 0 {
		return config.Context{}, validationError(fmt.Sprintf("context %q not found", effectiveName), nil)
	}

	resolved := contextCatalog.Contexts[idx]
	resolved.Client = resolved.Client.WithDefaults()
	if err := resolved.Client.Validate(); err != nil {
		return config.Context{}, err
	}

	return resolved, nil
}

func (m *FileContextService) loadCatalog() (config.ContextCatalog, error) {
	resolvedPath, err := resolveCatalogPath(m.contextCatalogPath)
	if err != nil {
		return config.ContextCatalog{}, err
	}

	contextCatalog, err := decodeCatalogFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.ContextCatalog{}, nil
		}
		return config.ContextCatalog{}, err
	}

	if err := validateCatalog(contextCatalog); err != nil {
		return config.ContextCatalog{}, err
	}

	return contextCatalog, nil
}

func findContextIndex(contexts []config.Context, name string) int {
	for idx, item := range contexts {
		if item.Name == name {
			return idx
		}
	}
	return -1
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
