package config

import (
	"context"
	"fmt"
	"io"

	configdomain "github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/spf13/cobra"
)

// contextSummary is the printable view of a context. Credentials are never
// printed.
type contextSummary struct {
	Name    string `json:"name" yaml:"name"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Auth    string `json:"auth" yaml:"auth"`
	Current bool   `json:"current" yaml:"current"`
}

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect contexts",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newListCommand(deps, globalFlags),
		newCurrentCommand(deps, globalFlags),
	)

	return command
}

func newListCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			items, err := contexts.List(command.Context())
			if err != nil {
				return err
			}
			currentName := currentContextName(command.Context(), contexts)

			summaries := make([]contextSummary, 0, len(items))
			for _, item := range items {
				summaries = append(summaries, summarize(item, item.Name == currentName))
			}
			return common.WriteOutput(command, globalFlags.Output, summaries, func(w io.Writer, value []contextSummary) error {
				for _, item := range value {
					marker := " "
					if item.Current {
						marker = "*"
					}
					if _, writeErr := fmt.Fprintf(w, "%s %s\t%s\n", marker, item.Name, item.BaseURL); writeErr != nil {
						return writeErr
					}
				}
				return nil
			})
		},
	}
}

func newCurrentCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Get current context",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			current, err := contexts.GetCurrent(command.Context())
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, summarize(current, true), func(w io.Writer, value contextSummary) error {
				_, writeErr := fmt.Fprintln(w, value.Name)
				return writeErr
			})
		},
	}
}

func currentContextName(ctx context.Context, contexts configdomain.ContextService) string {
	current, err := contexts.GetCurrent(ctx)
	if err != nil {
		return ""
	}
	return current.Name
}

func summarize(item configdomain.Context, current bool) contextSummary {
	client := item.Client.WithDefaults()
	return contextSummary{
		Name:    item.Name,
		BaseURL: client.BaseURL,
		Auth:    authKind(client.Auth),
		Current: current,
	}
}

func authKind(auth *configdomain.HTTPAuth) string {
	switch {
	case auth == nil || auth.Anonymous:
		return "anonymous"
	case auth.BasicAuth != nil:
		return "basic"
	case auth.BearerToken != nil:
		return "bearer-token"
	case auth.OAuth2 != nil:
		return "oauth2"
	default:
		return "anonymous"
	}
}
