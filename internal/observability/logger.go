package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// LoggerOptions holds configuration for console logging.
type LoggerOptions struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	Prefix          string
}

// DefaultLoggerOptions returns the options used when nothing is configured.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		Level:     log.InfoLevel,
		Formatter: log.TextFormatter,
		Prefix:    "projitive",
	}
}

// LoggerOptionsFromConfig maps the log section of projitive.yaml. Empty
// values keep the defaults.
func LoggerOptionsFromConfig(cfg models.LogConfig) (LoggerOptions, error) {
	opts := DefaultLoggerOptions()
	if cfg.Level != "" {
		lvl, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return opts, fmt.Errorf("parsing log level: %w", err)
		}
		opts.Level = lvl
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
	case "json":
		opts.Formatter = log.JSONFormatter
		opts.ReportTimestamp = true
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
		opts.ReportTimestamp = true
	default:
		return opts, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return opts, nil
}

// NewLogger creates a leveled logger writing to w. A nil w means stderr,
// which keeps stdout free for command output and the MCP channel.
func NewLogger(w io.Writer, opts LoggerOptions) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	})
}
