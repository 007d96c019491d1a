package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/core"
	"github.com/analyzere/analyzere-go/internal/cli"
)

func main() {
	args := os.Args[1:]
	bootstrap := core.BootstrapConfig{ContextCatalogPath: flagValueFromArgs(args, "--config", "")}
	deps := cli.Dependencies{
		Contexts: core.NewContextService(bootstrap),
	}
	if !shouldSkipContextBootstrap(args) {
		analyzereContext, err := core.NewAnalyzeReContext(
			context.Background(),
			bootstrap,
			config.ContextSelection{Name: contextNameFromArgs(args)},
		)
		if err != nil {
			if !isShellCompletionInvocation(args) {
				_, _ = fmt.Fprintln(os.Stderr, err)
				os.Exit(cli.ExitCodeForError(err))
			}
		} else {
			deps = cli.Dependencies{
				Client:   analyzereContext.Client,
				Contexts: analyzereContext.Contexts,
				Tokens:   analyzereContext.Tokens,
			}
		}
	}

	if err := cli.Execute(deps); err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}

func contextNameFromArgs(args []string) string {
	return flagValueFromArgs(args, "--context", "-c")
}

// flagValueFromArgs reads a string flag before cobra parses the command line.
func flagValueFromArgs(args []string, long string, short string) string {
	for idx := 0; idx < len(args); idx++ {
		current := args[idx]
		if current == "--" {
			break
		}

		if current == long || (short != "" && current == short) {
			if idx+1 < len(args) {
				return args[idx+1]
			}
			return ""
		}
		if strings.HasPrefix(current, long+"=") {
			return strings.TrimPrefix(current, long+"=")
		}
	}

	return ""
}

func isHelpInvocation(args []string) bool {
	if len(args) == 0 {
		return true
	}
	if args[0] == "help" {
		return true
	}

	for _, current := range args {
		if current == "--" {
			break
		}
		if current == "--help" || current == "-h" {
			return true
		}
	}

	return false
}

func isCompletionScriptInvocation(args []string) bool {
	if len(args) == 0 {
		return false
	}
	return args[0] == "completion"
}

func isShellCompletionInvocation(args []string) bool {
	if len(args) == 0 {
		return false
	}
	return args[0] == "__complete" || args[0] == "__completeNoDesc"
}

func shouldSkipContextBootstrap(args []string) bool {
	if isHelpInvocation(args) {
		return true
	}
	if isCompletionScriptInvocation(args) || isShellCompletionInvocation(args) {
		return true
	}

	commandPath, ok := resolveRunnableCommandPath(args)
	if !ok {
		return true
	}

	return !cli.RequiresContextBootstrapPath(commandPath)
}

func resolveRunnableCommandPath(args []string) (string, bool) {
	probe := cli.NewRootCommand(cli.Dependencies{})
	command, remainingArgs, err := probe.Find(args)
	if err != nil || command == nil {
		return "", false
	}
	if !command.Runnable() {
		return "", false
	}

	if err := command.ParseFlags(remainingArgs); err != nil {
		return "", false
	}
	if err := command.ValidateArgs(command.Flags().Args()); err != nil {
		return "", false
	}

	return strings.TrimSpace(command.CommandPath()), true
}
