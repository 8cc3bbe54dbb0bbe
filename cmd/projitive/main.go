package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/projitive/internal"
	"github.com/valter-silva-au/projitive/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	var running *app.App
	cli.Initialize = func(opts cli.InitOptions) error {
		a, err := app.NewApp(app.Options{
			BasePath:   app.ResolveBasePath(),
			ConfigFile: opts.ConfigFile,
			Root:       opts.Root,
			Depth:      opts.Depth,
		})
		if err != nil {
			return fmt.Errorf("initializing projitive: %w", err)
		}
		running = a
		return nil
	}

	err := cli.Execute()
	if running != nil {
		_ = running.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
