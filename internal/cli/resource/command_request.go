package resource

import (
	"net/http"
	"strings"

	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/analyzere/analyzere-go/server"
	"github.com/spf13/cobra"
)

type requestMethodConfig struct {
	method      string
	short       string
	allowsInput bool
}

func newRequestCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "request",
		Short: "Send raw requests through the configured client",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	methods := []requestMethodConfig{
		{method: "get", short: "Send GET request"},
		{method: "post", short: "Send POST request", allowsInput: true},
		{method: "put", short: "Send PUT request", allowsInput: true},
		{method: "patch", short: "Send PATCH request", allowsInput: true},
		{method: "delete", short: "Send DELETE request"},
	}
	for _, method := range methods {
		command.AddCommand(newRequestMethodCommand(deps, globalFlags, method))
	}

	return command
}

func newRequestMethodCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	cfg requestMethodConfig,
) *cobra.Command {
	var input common.InputFlags
	var params []string

	command := &cobra.Command{
		Use:   cfg.method + " <path>",
		Short: cfg.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return common.ValidationError("path is required", nil)
			}
			query, err := common.ParseParams(params)
			if err != nil {
				return err
			}

			spec := server.RequestSpec{
				Method: strings.ToUpper(cfg.method),
				Path:   path,
				Query:  query,
			}
			if cfg.allowsInput {
				data, err := common.ReadOptionalInput(command, input)
				if err != nil {
					return err
				}
				if data != nil {
					body, err := common.DecodeAttributesData(data, input.Format)
					if err != nil {
						return err
					}
					spec.Body = body
				}
			}

			apiClient, err := common.RequireClient(deps)
			if err != nil {
				return err
			}
			value, err := apiClient.Requester().Request(command.Context(), spec)
			if err != nil {
				return err
			}
			if spec.Method == http.MethodDelete && value == "" {
				return nil
			}
			materialized, err := apiClient.Materializer().Materialize(value, nil)
			if err != nil {
				return err
			}
			return common.WriteValue(command, globalFlags, materialized)
		},
	}
	common.BindParamFlag(command, &params)
	if cfg.allowsInput {
		common.BindInputFlags(command, &input)
	}
	return command
}
