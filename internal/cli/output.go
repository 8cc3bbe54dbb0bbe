package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// outputFormat holds the --output flag value.
var outputFormat = formatText

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusTodo       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusTodo:
		return statusTodo
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusBlocked:
		return statusBlocked
	case models.StatusDone:
		return statusDone
	default:
		return lipgloss.NewStyle()
	}
}

// writeOutput encodes v as JSON or YAML, or calls text for the default format.
func writeOutput(w io.Writer, v any, text func(io.Writer) error) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case formatText, "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q: must be text, json or yaml", outputFormat)
	}
}

func printTaskRow(w io.Writer, t models.Task) {
	status := styleForStatus(t.Status).Render(fmt.Sprintf("%-12s", t.Status))
	owner := t.Owner
	if owner == "" {
		owner = "-"
	}
	fmt.Fprintf(w, "  %-10s %s %-12s %s\n", t.ID, status, owner, t.Title)
}

func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render(t.ID), t.Title)
	fmt.Fprintf(w, "  status:      %s\n", styleForStatus(t.Status).Render(string(t.Status)))
	fmt.Fprintf(w, "  owner:       %s\n", orDash(t.Owner))
	fmt.Fprintf(w, "  summary:     %s\n", orDash(t.Summary))
	fmt.Fprintf(w, "  updatedAt:   %s\n", orDash(t.UpdatedAt))
	fmt.Fprintf(w, "  roadmapRefs: %s\n", orDash(strings.Join(t.RoadmapRefs, ", ")))
	if len(t.Links) > 0 {
		fmt.Fprintf(w, "  links:       %s\n", strings.Join(t.Links, ", "))
	}
	if len(t.Hooks) > 0 {
		fmt.Fprintf(w, "  hooks:       %s\n", strings.Join(t.Hooks, ", "))
	}
	if ss := t.SubState; ss != nil {
		conf := "-"
		if ss.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *ss.Confidence)
		}
		fmt.Fprintf(w, "  phase:       %s (confidence %s)\n", orDash(string(ss.Phase)), conf)
	}
	if b := t.Blocker; b != nil {
		fmt.Fprintf(w, "  blocker:     [%s] %s\n", b.Type, b.Description)
	}
}

func printSuggestions(w io.Writer, suggestions []core.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no lint suggestions"))
		return
	}
	for _, s := range suggestions {
		line := fmt.Sprintf("  %s %s", codeStyle.Render("["+s.Code+"]"), s.Message)
		if s.FixHint != "" {
			line += dimStyle.Render(" Fix: " + s.FixHint)
		}
		fmt.Fprintln(w, line)
	}
}

// commandContext returns the command's context, or a background context when
// RunE is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// resolveDir returns the absolute governance directory for a --dir value,
// defaulting to the working directory.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return abs, nil
}
