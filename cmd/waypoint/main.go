// Command waypoint runs the demo application and inspects its routes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalFlags struct {
	basePath string
	envFile  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "waypoint",
		Short: "HTTP routing and middleware kernel",
		Long: `Waypoint dispatches HTTP requests through global middleware, a
route-specific middleware stack and the matched route's action.

Use "serve" to run the application and "routes" to inspect how each
route's middleware resolves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.basePath, "base-path", ".", "Application base directory")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Environment file name, relative to the base path")

	rootCmd.AddCommand(
		serveCmd(flags),
		routesCmd(flags),
		versionCmd(),
	)

	return rootCmd
}
