package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/pkg/models"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Discover and initialise governance roots",
}

var projectScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List governance roots with task counts",
	Long: `Walk the scan root up to the configured depth and list every directory
holding the governance marker, with per-status task counts, the project score
(2 x IN_PROGRESS + TODO) and which governance artifacts exist.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		projects, err := ProjectSvc.ScanProjects(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("scanning projects: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), projects, func(w io.Writer) error {
			if len(projects) == 0 {
				fmt.Fprintln(w, "No governance roots found.")
				return nil
			}
			for _, p := range projects {
				printProjectSummary(w, p)
			}
			return nil
		})
	},
}

func printProjectSummary(w io.Writer, p core.ProjectSummary) {
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render(p.GovernanceDir), dimStyle.Render(fmt.Sprintf("score %d", p.Score)))
	for _, st := range models.AllStatuses() {
		fmt.Fprintf(w, "  %s %d\n", styleForStatus(st).Render(fmt.Sprintf("%-12s", st)), p.Counts[string(st)])
	}
	var missing []string
	if !p.Artifacts.TasksFile {
		missing = append(missing, "tasks")
	}
	if !p.Artifacts.Roadmap {
		missing = append(missing, "roadmap")
	}
	if !p.Artifacts.Readme {
		missing = append(missing, "readme")
	}
	if !p.Artifacts.DesignDocs {
		missing = append(missing, "design docs")
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(fmt.Sprintf("missing: %v", missing)))
	}
}

var projectInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Mark a directory as a governance root and create its ledger",
	Long: `Create the governance marker and an empty task ledger in the given
directory (default: the working directory). Existing files are left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if LedgerStore == nil || TaskMgr == nil {
			return fmt.Errorf("ledger store not initialized")
		}
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		govDir, err := resolveDir(dir)
		if err != nil {
			return err
		}

		markerCreated, err := ensureMarker(govDir, markerName())
		if err != nil {
			return err
		}
		tasksPath := TaskMgr.TasksPath(govDir)
		ledgerCreated, err := LedgerStore.Init(tasksPath)
		if err != nil {
			return fmt.Errorf("initialising ledger: %w", err)
		}

		out := cmd.OutOrStdout()
		if !markerCreated && !ledgerCreated {
			fmt.Fprintf(out, "%s is already a governance root\n", govDir)
			return nil
		}
		fmt.Fprintf(out, "Initialised governance root %s\n", govDir)
		if ledgerCreated {
			fmt.Fprintf(out, "  created %s\n", tasksPath)
		}
		return nil
	},
}

func markerName() string {
	if Config != nil && Config.Scan.Marker != "" {
		return Config.Scan.Marker
	}
	return ".projitive"
}

func ensureMarker(govDir, marker string) (bool, error) {
	path := filepath.Join(govDir, marker)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking marker: %w", err)
	}
	if err := os.MkdirAll(govDir, 0o755); err != nil {
		return false, fmt.Errorf("creating %s: %w", govDir, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return false, fmt.Errorf("writing marker: %w", err)
	}
	return true, nil
}

func init() {
	projectCmd.AddCommand(projectScanCmd)
	projectCmd.AddCommand(projectInitCmd)
	rootCmd.AddCommand(projectCmd)
}
