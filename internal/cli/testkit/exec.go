// Package testkit runs CLI command trees in tests.
package testkit

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// Cobra mutates annotation maps while serving help, so executions are
// serialized.
var executeMu sync.Mutex

func ExecuteCommandForTest(command *cobra.Command, stdin string, args ...string) (string, error) {
	output, _, err := ExecuteCommandForTestWithStreams(command, stdin, args...)
	return output, err
}

func ExecuteCommandForTestWithStreams(command *cobra.Command, stdin string, args ...string) (string, string, error) {
	executeMu.Lock()
	defer executeMu.Unlock()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	command.SetOut(stdout)
	command.SetErr(stderr)
	command.SetIn(strings.NewReader(stdin))
	command.SetArgs(args)

	err := command.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// CommandPaths lists every runnable or grouping command below root as
// space-joined paths, skipping help and hidden completion commands.
func CommandPaths(root *cobra.Command) []string {
	var paths []string
	var walk func(*cobra.Command, string)
	walk = func(command *cobra.Command, prefix string) {
		for _, child := range command.Commands() {
			name := child.Name()
			if name == "help" || strings.HasPrefix(name, "__") {
				continue
			}
			path := strings.TrimSpace(prefix + " " + name)
			paths = append(paths, path)
			walk(child, path)
		}
	}
	walk(root, "")
	return paths
}
