package resource

import (
	"github.com/analyzere/analyzere-go/catalog"
	"github.com/analyzere/analyzere-go/internal/cli/commandmeta"
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "resource",
		Short: "Read and write API resources",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newGetCommand(deps, globalFlags),
		newListCommand(deps, globalFlags),
		newSaveCommand(deps, globalFlags),
		newRequestCommand(deps, globalFlags),
	)

	return command
}

func newGetCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Retrieve one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			apiClient, err := common.RequireClient(deps)
			if err != nil {
				return err
			}
			obj, err := apiClient.Retrieve(command.Context(), apiClient.Registry().Lookup(args[0]), args[1])
			if err != nil {
				return err
			}
			return common.WriteValue(command, globalFlags, obj)
		},
	}
	command.ValidArgsFunction = commandmeta.CollectionArgCompletion(collectionNames(deps))
	return command
}

func newListCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var params []string

	command := &cobra.Command{
		Use:   "list <collection>",
		Short: "List one page of a collection",
		Example: "  analyzere resource list layers --param limit=10 --param offset=20\n" +
			"  analyzere resource list layer_views --param ordering=-created --jq '.meta.total_count'",
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			query, err := common.ParseParams(params)
			if err != nil {
				return err
			}
			apiClient, err := common.RequireClient(deps)
			if err != nil {
				return err
			}
			collection, err := apiClient.List(command.Context(), apiClient.Registry().Lookup(args[0]), query)
			if err != nil {
				return err
			}
			return common.WriteValue(command, globalFlags, collection)
		},
	}
	common.BindParamFlag(command, &params)
	command.ValidArgsFunction = commandmeta.CollectionArgCompletion(collectionNames(deps))
	return command
}

func newSaveCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var input common.InputFlags

	command := &cobra.Command{
		Use:   "save <collection>",
		Short: "Create or replace a resource from a payload",
		Long: "Creates the resource when the payload has no id and replaces it otherwise.\n" +
			"The saved representation returned by the server is printed.",
		Example: "  analyzere resource save layers -f layer.json\n" +
			"  cat portfolio.yaml | analyzere resource save portfolios -f - -i yaml",
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			attrs, err := common.DecodeAttributes(command, input)
			if err != nil {
				return err
			}
			apiClient, err := common.RequireClient(deps)
			if err != nil {
				return err
			}
			obj := resource.New(apiClient.Registry().Lookup(args[0]), attrs)
			saved, err := apiClient.Save(command.Context(), obj)
			if err != nil {
				return err
			}
			return common.WriteValue(command, globalFlags, saved)
		},
	}
	common.BindInputFlags(command, &input)
	command.ValidArgsFunction = commandmeta.CollectionArgCompletion(collectionNames(deps))
	return command
}

func collectionNames(deps common.CommandDependencies) func() []string {
	return func() []string {
		if deps.Client == nil {
			return catalog.NewRegistry().Collections()
		}
		return deps.Client.Registry().Collections()
	}
}
