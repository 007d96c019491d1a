package debugctx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// WithLogger attaches logger to ctx. Lines written through Printf go to the
// logger at verbosity 1.
func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// Logger returns the logger carried by ctx, or a discarding one.
func Logger(ctx context.Context) logr.Logger {
	if ctx == nil {
		return logr.Discard()
	}

	logger, err := logr.FromContext(ctx)
	if err != nil {
		return logr.Discard()
	}
	return logger
}

func Enabled(ctx context.Context) bool {
	return Logger(ctx).V(1).Enabled()
}

func Printf(ctx context.Context, format string, args ...any) {
	logger := Logger(ctx).V(1)
	if !logger.Enabled() {
		return
	}

	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}

	logger.Info(message)
}

// NewWriterLogger returns a logger printing "debug: <message>" lines to
// writer. With enabled false every line is dropped.
func NewWriterLogger(writer io.Writer, enabled bool) logr.Logger {
	if writer == nil {
		return logr.Discard()
	}

	verbosity := 0
	if enabled {
		verbosity = 1
	}

	return funcr.New(func(prefix, args string) {
		line := strings.TrimSpace(args)
		if prefix != "" {
			line = prefix + " " + line
		}
		_, _ = fmt.Fprintf(writer, "debug: %s\n", line)
	}, funcr.Options{Verbosity: verbosity})
}
