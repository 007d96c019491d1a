package common

import (
	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/server"
)

type CommandDependencies struct {
	Client   *client.Client
	Contexts config.ContextService
	Tokens   server.AccessTokenProvider
}

func RequireContexts(deps CommandDependencies) (config.ContextService, error) {
	if deps.Contexts == nil {
		return nil, ValidationError("context service is not configured", nil)
	}
	return deps.Contexts, nil
}

func RequireClient(deps CommandDependencies) (*client.Client, error) {
	if deps.Client == nil {
		return nil, ValidationError("client is not configured: check the selected context", nil)
	}
	return deps.Client, nil
}

func RequireTokens(deps CommandDependencies) (server.AccessTokenProvider, error) {
	if deps.Tokens == nil {
		return nil, ValidationError("access token provider is not configured", nil)
	}
	return deps.Tokens, nil
}
