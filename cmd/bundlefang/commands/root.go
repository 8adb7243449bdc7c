package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/version"
)

// Process exit codes. Build failures exit with ExitKindBase plus the
// bundleerr kind (11 io, 12 transform, 13 resolution, 14 cyclic import).
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitStale    = 3
	ExitKindBase = 10
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrStale):
		return ExitStale
	}

	if kind := bundleerr.KindOf(err); kind != bundleerr.KindUnknown {
		return ExitKindBase + int(kind)
	}

	return ExitFailure
}

// NewRootCommand assembles the bundlefang command tree around g.
func NewRootCommand(g *GlobalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bundlefang",
		Short: "Bundle JavaScript and TypeScript modules into one script",
		Long: `bundlefang follows relative imports from an entry file and writes a single
self-contained script with a small require runtime.

Commands:
  bundle    Write the bundled artifact
  graph     Print the module graph
  run       Bundle and execute in an embedded engine`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	g.Register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(NewBundleCommand(g))
	rootCmd.AddCommand(NewGraphCommand(g))
	rootCmd.AddCommand(NewRunCommand(g))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
