// Command appcore serves an appcore project: page templates, static
// files, the dispatch pipeline and its live transport.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/appcore/internal/config"
	"github.com/vango-dev/appcore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "appcore",
		Short: "Serve template-driven pages through the appcore pipeline",
		Long: `appcore serves an application built on the appcore dispatch pipeline.

Requests are dispatched to services, views and events; results are
rendered through page templates under templates/dynamic/ and wrapped
in templates/page.html.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to appcore.yaml or appcore.json (default: search upward from the working directory)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath)
		}
		return config.LoadFromWorkingDir()
	}

	cmd.AddCommand(
		serveCmd(load),
		checkCmd(load),
		versionCmd(),
	)
	return cmd
}

// loadFunc loads the project configuration selected by the global flags.
type loadFunc func() (*config.Config, error)

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
