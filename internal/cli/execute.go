package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/analyzere/analyzere-go/client"
	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/internal/cli/commandmeta"
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/analyzere/analyzere-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Dependencies struct {
	Client   *client.Client
	Contexts config.ContextService
	Tokens   server.AccessTokenProvider
}

func (d Dependencies) commandDependencies() common.CommandDependencies {
	return common.CommandDependencies{
		Client:   d.Client,
		Contexts: d.Contexts,
		Tokens:   d.Tokens,
	}
}

func Execute(deps Dependencies) error {
	root := NewRootCommand(deps)
	command, err := root.ExecuteC()
	emitStatus := shouldEmitExecutionStatus(os.Args[1:], command)

	if err != nil {
		if emitStatus {
			writeExecutionErrorStatus(root.ErrOrStderr(), err)
		} else {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
		}
		return err
	}
	if emitStatus {
		writeExecutionOKStatus(root.ErrOrStderr())
	}
	return nil
}

func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	typedErr, ok := faults.As(err)
	if !ok {
		return 1
	}

	switch typedErr.Category {
	case faults.ValidationError, faults.MissingIDError:
		return 2
	case faults.InvalidRequestError:
		return 3
	case faults.AuthenticationError:
		return 4
	case faults.RetryAfterError:
		return 5
	case faults.TransportError:
		return 6
	default:
		return 1
	}
}

func writeExecutionOKStatus(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s command executed successfully.\n", formatStatusLabel(w, "OK"))
}

func writeExecutionErrorStatus(w io.Writer, err error) {
	description := "command execution failed"
	if err != nil {
		description = fmt.Sprintf("%s: %s", description, strings.TrimSpace(err.Error()))
	}
	_, _ = fmt.Fprintf(w, "%s %s.\n", formatStatusLabel(w, "ERROR"), description)
}

func formatStatusLabel(w io.Writer, status string) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(status))
	if !supportsANSIStatus(w) {
		return label
	}

	switch strings.TrimSpace(status) {
	case "OK":
		return "\x1b[1;32m" + label + "\x1b[0m"
	case "ERROR":
		return "\x1b[1;31m" + label + "\x1b[0m"
	default:
		return label
	}
}

func supportsANSIStatus(w io.Writer) bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if !common.IsTerminal(w) {
		return false
	}

	term := strings.TrimSpace(strings.ToLower(os.Getenv("TERM")))
	return term != "" && term != "dumb"
}

func shouldEmitExecutionStatus(args []string, command *cobra.Command) bool {
	if shouldSuppressStatusMessage(args) {
		return false
	}
	if isHelpOrCompletionInvocation(args) {
		return false
	}
	if command == nil {
		return false
	}
	return commandmeta.EmitsExecutionStatusPath(command.CommandPath())
}

// shouldSuppressStatusMessage honours --quiet without depending on the
// parsed command tree, which may not exist after a flag error.
func shouldSuppressStatusMessage(args []string) bool {
	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)

	var quiet bool
	flags.BoolVarP(&quiet, "quiet", "q", false, "hide status output")
	if err := flags.Parse(args); err != nil {
		return false
	}
	return quiet
}

func isHelpOrCompletionInvocation(args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help", "completion", "__complete", "__completeNoDesc":
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

func RequiresContextBootstrapPath(commandPath string) bool {
	return commandmeta.RequiresContextBootstrapPath(commandPath)
}
