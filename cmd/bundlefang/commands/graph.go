package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundler"
	"github.com/Sumatoshi-tech/bundlefang/pkg/report"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(g *GlobalOptions) *cobra.Command {
	var (
		format string
		flags  bundleFlags
	)

	names := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		names = append(names, string(f))
	}

	cmd := &cobra.Command{
		Use:   "graph <entry>",
		Short: "Print the module graph of an entry file",
		Long: `Graph builds the module graph exactly as bundle would and prints every
asset with its identity, path, size and resolved imports instead of
emitting an artifact.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, g)
			if err != nil {
				return err
			}
			defer sess.close()

			b, err := sess.bundler(g.fs(), func(opts *bundler.Options) { applyBuildFlags(cmd, &flags, opts) })
			if err != nil {
				return err
			}

			mg, err := b.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return report.Write(cmd.OutOrStdout(), mg, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable),
		fmt.Sprintf("output format (%s)", strings.Join(names, ", ")))
	cmd.Flags().BoolVar(&flags.dedupe, "dedupe", true, "load each resolved file once")
	cmd.Flags().BoolVar(&flags.detectCycles, "detect-cycles", true, "fail on circular imports")

	return cmd
}
