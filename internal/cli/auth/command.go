package auth

import (
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	command := &cobra.Command{
		Use:   "auth",
		Short: "Inspect credentials of the selected context",
		Args:  cobra.NoArgs,
	}
	command.AddCommand(newTokenCommand(deps))
	return command
}

func newTokenCommand(deps common.CommandDependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the access token sent with requests",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			tokens, err := common.RequireTokens(deps)
			if err != nil {
				return err
			}
			token, err := tokens.GetAccessToken(command.Context())
			if err != nil {
				return err
			}
			return common.WriteText(command, common.OutputText, token)
		},
	}
}
