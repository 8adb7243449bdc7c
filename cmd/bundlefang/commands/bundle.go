package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundler"
)

// outputPerm is the mode of written artifacts.
const outputPerm = 0o644

// ErrStale is returned by --check when the output file differs from a
// fresh build.
var ErrStale = errors.New("bundle output is out of date")

// errCheckNeedsOutput is returned when --check is used without --output.
var errCheckNeedsOutput = errors.New("--check requires --output")

// bundleFlags holds the bundle command's own flags.
type bundleFlags struct {
	output       string
	banner       string
	minify       bool
	dedupe       bool
	detectCycles bool
	cacheModules bool
	check        bool
}

// NewBundleCommand creates the bundle command.
func NewBundleCommand(g *GlobalOptions) *cobra.Command {
	var flags bundleFlags

	cmd := &cobra.Command{
		Use:   "bundle <entry>",
		Short: "Bundle an entry file and its imports into one script",
		Long: `Bundle follows the relative imports of the entry file, converts every
module to the CommonJS calling convention and writes one self-executing
script that runs the entry first.

The artifact goes to stdout unless --output is given. With --check the
existing --output file is compared to a fresh build instead of being
overwritten, and the command fails when they differ.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, g, &flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the artifact to this file")
	cmd.Flags().StringVar(&flags.banner, "banner", "", "comment placed at the top of the artifact")
	cmd.Flags().BoolVar(&flags.minify, "minify", false, "minify the artifact")
	cmd.Flags().BoolVar(&flags.dedupe, "dedupe", true, "load each resolved file once")
	cmd.Flags().BoolVar(&flags.detectCycles, "detect-cycles", true, "fail on circular imports")
	cmd.Flags().BoolVar(&flags.cacheModules, "cache-modules", true, "run each module body once at run time")
	cmd.Flags().BoolVar(&flags.check, "check", false, "verify --output is up to date instead of writing it")

	return cmd
}

// applyBuildFlags overrides config values with explicitly set flags.
func applyBuildFlags(cmd *cobra.Command, flags *bundleFlags, opts *bundler.Options) {
	set := cmd.Flags().Changed

	if set("minify") {
		opts.Emit.Minify = flags.minify
	}

	if set("banner") {
		opts.Emit.Banner = flags.banner
	}

	if set("cache-modules") {
		opts.Emit.CacheModules = flags.cacheModules
	}

	if set("dedupe") {
		opts.Dedupe = flags.dedupe
	}

	if set("detect-cycles") {
		opts.DetectCycles = flags.detectCycles
	}
}

func runBundle(cmd *cobra.Command, g *GlobalOptions, flags *bundleFlags, entry string) error {
	if flags.check && flags.output == "" {
		return errCheckNeedsOutput
	}

	sess, err := openSession(cmd, g)
	if err != nil {
		return err
	}
	defer sess.close()

	fsys := g.fs()

	b, err := sess.bundler(fsys, func(opts *bundler.Options) { applyBuildFlags(cmd, flags, opts) })
	if err != nil {
		return err
	}

	res, err := b.Bundle(cmd.Context(), entry)
	if err != nil {
		return err
	}

	switch {
	case flags.check:
		return checkOutput(fsys, cmd.ErrOrStderr(), flags.output, res.Artifact)
	case flags.output != "":
		err = afero.WriteFile(fsys, flags.output, []byte(res.Artifact), outputPerm)
		if err != nil {
			return fmt.Errorf("write %s: %w", flags.output, err)
		}

		sess.providers.Logger.InfoContext(cmd.Context(), "artifact written", "path", flags.output)

		return nil
	default:
		_, err = io.WriteString(cmd.OutOrStdout(), res.Artifact)
		if err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}

		return nil
	}
}

// checkOutput compares the file at path to want and prints a line diff to
// w when they differ. A missing file counts as stale.
func checkOutput(fsys afero.Fs, w io.Writer, path, want string) error {
	got, err := afero.ReadFile(fsys, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if string(got) == want {
		return nil
	}

	writeLineDiff(w, string(got), want)

	return fmt.Errorf("%w: %s", ErrStale, path)
}

func writeLineDiff(w io.Writer, oldText, newText string) {
	dmp := diffmatchpatch.New()

	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(w, removed, "-", d.Text)
		case diffmatchpatch.DiffInsert:
			writeLines(w, added, "+", d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}
}

func writeLines(w io.Writer, c *color.Color, prefix, text string) {
	for _, line := range splitLines(text) {
		c.Fprintf(w, "%s %s\n", prefix, line)
	}
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
