package common

import "github.com/spf13/cobra"

type GlobalFlags struct {
	Config  string
	Context string
	Debug   bool
	Output  string
	JQ      string
	Quiet   bool
}

type InputFlags struct {
	Payload string
	Format  string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVar(&flags.Config, "config", "", "context catalog path (default $ANALYZERE_CONTEXTS_FILE or ~/.analyzere/contexts.yaml)")
	command.PersistentFlags().StringVarP(&flags.Context, "context", "c", "", "context name")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputJSON, "output format: json|yaml|text")
	command.PersistentFlags().StringVar(&flags.JQ, "jq", "", "jq expression applied to structured output")
	command.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "hide status output")
	RegisterOutputFlagCompletion(command)
}

func BindInputFlags(command *cobra.Command, flags *InputFlags) {
	command.Flags().StringVarP(&flags.Payload, "payload", "f", "", "payload file path (use '-' to read object from stdin)")
	command.Flags().StringVarP(&flags.Format, "format", "i", OutputJSON, "input format: json|yaml")
	_ = command.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputJSON, OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
}

// BindParamFlag binds a repeatable --param name=value flag.
func BindParamFlag(command *cobra.Command, params *[]string) {
	command.Flags().StringArrayVarP(params, "param", "P", nil, "query parameter as name=value (repeatable)")
}

func RegisterOutputFlagCompletion(command *cobra.Command) {
	_ = command.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputJSON, OutputYAML, OutputText}, cobra.ShellCompDirectiveNoFileComp
	})
}
