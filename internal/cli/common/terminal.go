package common

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// IsTerminal reports whether writer is an interactive terminal.
func IsTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// ProgressPrinter returns a progress callback that redraws one status line on
// stderr. It prints nothing when stderr is not a terminal.
func ProgressPrinter(command *cobra.Command, label string) func(float64) {
	writer := command.ErrOrStderr()
	if !IsTerminal(writer) {
		return func(float64) {}
	}
	return func(percent float64) {
		_, _ = fmt.Fprintf(writer, "\r%s %5.1f%%", label, percent)
		if percent >= 100 {
			_, _ = fmt.Fprintln(writer)
		}
	}
}
