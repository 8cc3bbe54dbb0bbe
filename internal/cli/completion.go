package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var completionInstall bool

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for projitive",
	Long: `Set up shell tab-completions for projitive commands, flags and task ids.

Supported shells: bash, zsh, fish, powershell

Quick install (writes the script under your home directory):

  projitive completion bash --install
  projitive completion zsh --install
  projitive completion fish --install

Or print the completion script to stdout:

  eval "$(projitive completion bash)"`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your home directory")

	// Replace Cobra's default completion command.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell := args[0]
	gen, err := completionGenerator(shell)
	if err != nil {
		return err
	}
	if !completionInstall {
		return gen(cmd.OutOrStdout())
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	target, err := completionTarget(home, shell)
	if err != nil {
		return err
	}
	if err := writeCompletionFile(target, gen); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s completions installed to %s\n", shell, target)
	if shell == "zsh" {
		fmt.Fprintf(cmd.OutOrStdout(), "Ensure %s is in your fpath, then run: autoload -Uz compinit && compinit\n", filepath.Dir(target))
	}
	return nil
}

func completionGenerator(shell string) (func(io.Writer) error, error) {
	switch shell {
	case "bash":
		return func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) }, nil
	case "zsh":
		return rootCmd.GenZshCompletion, nil
	case "fish":
		return func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) }, nil
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc, nil
	default:
		return nil, fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", shell)
	}
}

// completionTarget returns the user-local script location for shell.
func completionTarget(home, shell string) (string, error) {
	switch shell {
	case "bash":
		return filepath.Join(home, ".local", "share", "bash-completion", "completions", "projitive"), nil
	case "zsh":
		return filepath.Join(home, ".local", "share", "zsh", "site-functions", "_projitive"), nil
	case "fish":
		return filepath.Join(home, ".config", "fish", "completions", "projitive.fish"), nil
	case "powershell":
		return "", fmt.Errorf("automatic install is not supported for PowerShell; add the output of 'projitive completion powershell' to your profile")
	default:
		return "", fmt.Errorf("unsupported shell %q", shell)
	}
}

// writeCompletionFile renders the script in memory and replaces target atomically.
func writeCompletionFile(target string, gen func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}
	var buf bytes.Buffer
	if err := gen(&buf); err != nil {
		return fmt.Errorf("generating completion script: %w", err)
	}
	if err := atomic.WriteFile(target, &buf); err != nil {
		return fmt.Errorf("writing completion file %s: %w", target, err)
	}
	return nil
}
