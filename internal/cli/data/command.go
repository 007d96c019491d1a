package data

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/analyzere/analyzere-go/catalog"
	"github.com/analyzere/analyzere-go/internal/cli/commandmeta"
	"github.com/analyzere/analyzere-go/internal/cli/common"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/upload"
	"github.com/spf13/cobra"
)

const stdinPath = "-"

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "data",
		Short: "Upload and download resource data",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newUploadCommand(deps, globalFlags),
		newStatusCommand(deps, globalFlags),
		newDownloadCommand(deps),
		newDeleteCommand(deps),
	)

	return command
}

func newUploadCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var filePath string
	var chunkSize int64
	var pollInterval time.Duration

	command := &cobra.Command{
		Use:   "upload <collection> <id>",
		Short: "Upload data with the resumable protocol and wait for processing",
		Example: "  analyzere data upload loss_sets 0f5b... --file ylt.csv\n" +
			"  gzip -dc elt.csv.gz | analyzere data upload event_catalogs 3c1e... --file -",
		Args: cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			if filePath == "" {
				return common.ValidationError("flag --file is required", nil)
			}
			entity, err := targetEntity(deps, args)
			if err != nil {
				return err
			}

			source, closeSource, err := openSource(command, filePath)
			if err != nil {
				return err
			}
			defer closeSource()

			opts := []upload.Option{
				upload.WithUploadCallback(common.ProgressPrinter(command, "uploading")),
				upload.WithCommitCallback(common.ProgressPrinter(command, "processing")),
			}
			if chunkSize > 0 {
				opts = append(opts, upload.WithChunkSize(chunkSize))
			}
			if pollInterval > 0 {
				opts = append(opts, upload.WithPollInterval(pollInterval))
			}

			status, err := deps.Client.UploadData(command.Context(), entity, source, opts...)
			if err != nil {
				return err
			}
			return writeStatus(command, globalFlags, status)
		},
	}
	command.Flags().StringVar(&filePath, "file", "", "data file path (use '-' to read from stdin)")
	command.Flags().Int64Var(&chunkSize, "chunk-size", 0, "bytes per chunk (default from context)")
	command.Flags().DurationVar(&pollInterval, "poll-interval", 0, "processing poll interval (default from context)")
	command.ValidArgsFunction = collectionCompletion()
	return command
}

func newStatusCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "status <collection> <id>",
		Short: "Show the upload status of a resource's data",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			entity, err := targetEntity(deps, args)
			if err != nil {
				return err
			}
			status, err := deps.Client.UploadStatus(command.Context(), entity)
			if err != nil {
				return err
			}
			return writeStatus(command, globalFlags, status)
		},
	}
	command.ValidArgsFunction = collectionCompletion()
	return command
}

func newDownloadCommand(deps common.CommandDependencies) *cobra.Command {
	var outPath string

	command := &cobra.Command{
		Use:   "download <collection> <id>",
		Short: "Download a resource's data",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			entity, err := targetEntity(deps, args)
			if err != nil {
				return err
			}
			payload, err := deps.Client.DownloadData(command.Context(), entity)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == stdinPath {
				_, err = command.OutOrStdout().Write(payload)
				return err
			}
			return os.WriteFile(outPath, payload, 0o600)
		},
	}
	command.Flags().StringVar(&outPath, "out", "", "write data to this path instead of stdout")
	command.ValidArgsFunction = collectionCompletion()
	return command
}

func newDeleteCommand(deps common.CommandDependencies) *cobra.Command {
	var confirm bool

	command := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a resource's data",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			if !confirm {
				return common.ValidationError("flag --confirm-delete is required: are you sure you want to delete?", nil)
			}
			entity, err := targetEntity(deps, args)
			if err != nil {
				return err
			}
			return deps.Client.DeleteData(command.Context(), entity)
		},
	}
	command.Flags().BoolVarP(&confirm, "confirm-delete", "y", false, "confirm data deletion")
	command.ValidArgsFunction = collectionCompletion()
	return command
}

// targetEntity returns an unresolved reference; operations resolve it once.
func targetEntity(deps common.CommandDependencies, args []string) (*resource.Reference, error) {
	apiClient, err := common.RequireClient(deps)
	if err != nil {
		return nil, err
	}
	return apiClient.ReferenceTo(apiClient.Registry().Lookup(args[0]), args[1])
}

func openSource(command *cobra.Command, path string) (io.ReadSeeker, func(), error) {
	if path == stdinPath {
		payload, err := io.ReadAll(command.InOrStdin())
		if err != nil {
			return nil, nil, err
		}
		return upload.FromBytes(payload), func() {}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, common.ValidationError(fmt.Sprintf("failed to open %q", path), err)
	}
	return file, func() { _ = file.Close() }, nil
}

type statusView struct {
	Status         string  `json:"status" yaml:"status"`
	CommitProgress float64 `json:"commit_progress" yaml:"commit_progress"`
}

func writeStatus(command *cobra.Command, globalFlags *common.GlobalFlags, status *upload.Status) error {
	if status == nil {
		return nil
	}
	if globalFlags.Output == common.OutputText && globalFlags.JQ == "" {
		return common.WriteOutput(command, common.OutputText, statusView{
			Status:         status.Status,
			CommitProgress: status.CommitProgress,
		}, func(w io.Writer, value statusView) error {
			_, err := fmt.Fprintf(w, "%s (%.1f%%)\n", value.Status, value.CommitProgress)
			return err
		})
	}
	if status.Object != nil {
		return common.WriteValue(command, globalFlags, status.Object)
	}
	return common.WriteValue(command, globalFlags, map[string]any{
		"status":          status.Status,
		"commit_progress": status.CommitProgress,
	})
}

func collectionCompletion() func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return commandmeta.CollectionArgCompletion(catalog.NewRegistry().Collections)
}
