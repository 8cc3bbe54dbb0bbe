package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Global flag values.
var (
	configFileFlag string
	rootFlag       string
	depthFlag      int
)

var rootCmd = &cobra.Command{
	Use:   "projitive",
	Short: "Task ledgers across every project in a directory tree",
	Long: `projitive discovers governance roots (directories holding a .projitive
marker) and manages the task ledger inside each root's tasks.md.

It lints ledgers, enforces the task status lifecycle, ranks what to work on
next across all projects and serves the same operations to AI agents over MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if Initialize == nil || skipsInitialize(cmd) {
			return nil
		}
		opts := InitOptions{ConfigFile: configFileFlag, Root: rootFlag}
		if cmd.Flags().Changed("depth") {
			if depthFlag < 0 {
				return fmt.Errorf("--depth must not be negative")
			}
			depth := depthFlag
			opts.Depth = &depth
		}
		return Initialize(opts)
	},
}

// skipsInitialize reports whether cmd is a top-level command that runs
// without services. It must not refer to rootCmd or its children, since
// rootCmd's initializer calls it.
func skipsInitialize(cmd *cobra.Command) bool {
	if parent := cmd.Parent(); parent == nil || parent.HasParent() {
		return false
	}
	switch cmd.Name() {
	case "version", "completion":
		return true
	}
	return false
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "projitive %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFileFlag, "config", "", "Config file (default: projitive.yaml in the working directory or ~/.config/projitive)")
	flags.StringVar(&rootFlag, "root", "", "Directory to scan for governance roots (overrides scan.root)")
	flags.IntVar(&depthFlag, "depth", 0, "Maximum scan depth below the root (overrides scan.max_depth)")
	flags.StringVarP(&outputFormat, "output", "o", formatText, "Output format: text, json or yaml")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
