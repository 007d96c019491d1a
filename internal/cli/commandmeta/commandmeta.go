package commandmeta

import (
	"strings"

	"github.com/spf13/cobra"
)

type OutputPolicy uint8

const (
	OutputPolicyStructured OutputPolicy = iota
	OutputPolicyTextOnly
)

// RequiresContextBootstrapPath reports whether the command talks to the API
// and therefore needs a client built from the selected context.
func RequiresContextBootstrapPath(commandPath string) bool {
	normalized := strings.TrimSpace(commandPath)
	switch {
	case strings.HasPrefix(normalized, "analyzere resource "):
		return true
	case strings.HasPrefix(normalized, "analyzere data "):
		return true
	case strings.HasPrefix(normalized, "analyzere metrics "):
		return true
	case strings.HasPrefix(normalized, "analyzere auth "):
		return true
	}

	return false
}

func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "analyzere resource save",
		"analyzere data upload",
		"analyzere data delete":
		return true
	default:
		return false
	}
}

func OutputPolicyForPath(path string) OutputPolicy {
	switch strings.TrimSpace(path) {
	case "analyzere auth token",
		"analyzere data download":
		return OutputPolicyTextOnly
	default:
		return OutputPolicyStructured
	}
}

// CollectionArgCompletion completes the first positional argument with the
// known collection names.
func CollectionArgCompletion(collections func() []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 || collections == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return collections(), cobra.ShellCompDirectiveNoFileComp
	}
}
