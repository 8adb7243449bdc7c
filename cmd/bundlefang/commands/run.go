package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bundlefang/internal/jsrun"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundler"
)

// NewRunCommand creates the run command.
func NewRunCommand(g *GlobalOptions) *cobra.Command {
	var flags bundleFlags

	cmd := &cobra.Command{
		Use:   "run <entry>",
		Short: "Bundle an entry file and execute it in an embedded JavaScript engine",
		Long: `Run builds the same artifact as bundle and executes it in-process.
console.log and console.info go to stdout, console.warn and console.error
to stderr. Interrupting the command stops the script.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, g)
			if err != nil {
				return err
			}
			defer sess.close()

			b, err := sess.bundler(g.fs(), func(opts *bundler.Options) { applyBuildFlags(cmd, &flags, opts) })
			if err != nil {
				return err
			}

			res, err := b.Bundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return jsrun.Run(cmd.Context(), res.Artifact, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&flags.dedupe, "dedupe", true, "load each resolved file once")
	cmd.Flags().BoolVar(&flags.detectCycles, "detect-cycles", true, "fail on circular imports")
	cmd.Flags().BoolVar(&flags.cacheModules, "cache-modules", true, "run each module body once")

	return cmd
}
