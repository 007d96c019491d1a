package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/analyzere/analyzere-go/catalog"
	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/internal/cli/commandmeta"
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/spf13/cobra"
)

type metricsFlags struct {
	params []string
	noWait bool
}

func (f *metricsFlags) bind(command *cobra.Command) {
	common.BindParamFlag(command, &f.params)
	command.Flags().BoolVar(&f.noWait, "no-wait", false, "fail with a retry-after error instead of waiting for results")
}

func (f *metricsFlags) options() ([]client.CallOption, error) {
	params, err := common.ParseParams(f.params)
	if err != nil {
		return nil, err
	}
	opts := []client.CallOption{client.WithParams(params)}
	if f.noWait {
		opts = append(opts, client.WithoutAutoRetry())
	}
	return opts, nil
}

type vectorMetric func(context.Context, *client.Client, resource.Entity, []float64, []client.CallOption) (resource.Value, error)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "metrics",
		Short: "Query analysis metrics of layer and portfolio views",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newELCommand(deps, globalFlags),
		newVectorCommand(deps, globalFlags, "tail <collection> <id> <probability>...", "Tail metrics at return-period probabilities",
			func(ctx context.Context, c *client.Client, e resource.Entity, v []float64, o []client.CallOption) (resource.Value, error) {
				return c.TailMetrics(ctx, e, v, o...)
			}),
		newVectorCommand(deps, globalFlags, "ep <collection> <id> <threshold>...", "Exceedance probabilities of loss thresholds",
			func(ctx context.Context, c *client.Client, e resource.Entity, v []float64, o []client.CallOption) (resource.Value, error) {
				return c.EP(ctx, e, v, o...)
			}),
		newVectorCommand(deps, globalFlags, "tvar <collection> <id> <probability>...", "Tail value at risk at probabilities",
			func(ctx context.Context, c *client.Client, e resource.Entity, v []float64, o []client.CallOption) (resource.Value, error) {
				return c.TVaR(ctx, e, v, o...)
			}),
	)

	return command
}

func newELCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var flags metricsFlags

	command := &cobra.Command{
		Use:     "el <collection> <id>",
		Short:   "Expected loss",
		Example: "  analyzere metrics el layer_views 2a7f... --param perspective=NetLoss",
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			apiClient, entity, err := target(deps, args)
			if err != nil {
				return err
			}
			value, err := apiClient.EL(command.Context(), entity, opts...)
			if err != nil {
				return err
			}
			if globalFlags.Output == common.OutputText && globalFlags.JQ == "" {
				return common.WriteOutput(command, common.OutputText, value, func(w io.Writer, item float64) error {
					_, err := fmt.Fprintln(w, item)
					return err
				})
			}
			return common.WriteValue(command, globalFlags, value)
		},
	}
	flags.bind(command)
	command.ValidArgsFunction = collectionCompletion()
	return command
}

func newVectorCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	use string,
	short string,
	run vectorMetric,
) *cobra.Command {
	var flags metricsFlags

	command := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(3),
		RunE: func(command *cobra.Command, args []string) error {
			values, err := common.ParseFloats(args[2:])
			if err != nil {
				return err
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			apiClient, entity, err := target(deps, args)
			if err != nil {
				return err
			}
			value, err := run(command.Context(), apiClient, entity, values, opts)
			if err != nil {
				return err
			}
			return common.WriteValue(command, globalFlags, value)
		},
	}
	flags.bind(command)
	command.ValidArgsFunction = collectionCompletion()
	return command
}

func target(deps common.CommandDependencies, args []string) (*client.Client, resource.Entity, error) {
	apiClient, err := common.RequireClient(deps)
	if err != nil {
		return nil, nil, err
	}
	ref, err := apiClient.ReferenceTo(apiClient.Registry().Lookup(args[0]), args[1])
	if err != nil {
		return nil, nil, err
	}
	return apiClient, ref, nil
}

func collectionCompletion() func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return commandmeta.CollectionArgCompletion(catalog.NewRegistry().Collections)
}
