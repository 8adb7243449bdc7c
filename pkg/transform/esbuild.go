package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrUnknownTarget is returned for a target name esbuild does not know.
var ErrUnknownTarget = errors.New("unknown transform target")

// DefaultTarget is the language level of emitted bodies.
const DefaultTarget = "es2015"

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name such as "es2015" to its esbuild value.
func ParseTarget(name string) (api.Target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}

	return t, nil
}

// Message is one diagnostic reported by esbuild.
type Message struct {
	File   string
	Text   string
	Line   int
	Column int
}

func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}

	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// SyntaxError carries the diagnostics of a rejected file.
type SyntaxError struct {
	Messages []Message
}

func (e *SyntaxError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, m.String())
	}

	return strings.Join(parts, "; ")
}

func newSyntaxError(msgs []api.Message) *SyntaxError {
	out := make([]Message, 0, len(msgs))

	for _, msg := range msgs {
		m := Message{Text: msg.Text}
		if msg.Location != nil {
			m.File = msg.Location.File
			m.Line = msg.Location.Line
			m.Column = msg.Location.Column
		}

		out = append(out, m)
	}

	return &SyntaxError{Messages: out}
}

// Options configures the default transformer.
type Options struct {
	// Target is the esbuild target name. Empty means DefaultTarget.
	Target string
}

// ESBuild finds imports with an ImportScanner and rewrites ES module syntax
// to CommonJS with esbuild.
type ESBuild struct {
	scanner *ImportScanner
	target  api.Target
}

// New creates the default transformer.
func New(opts Options) (*ESBuild, error) {
	name := opts.Target
	if name == "" {
		name = DefaultTarget
	}

	target, err := ParseTarget(name)
	if err != nil {
		return nil, err
	}

	return &ESBuild{
		scanner: NewImportScanner(),
		target:  target,
	}, nil
}

// Transform implements Transformer.
func (e *ESBuild) Transform(path string, source []byte) (Result, error) {
	lang := DetectLanguage(path)

	out := api.Transform(string(source), api.TransformOptions{
		Loader:     lang.loader(),
		Format:     api.FormatCommonJS,
		Target:     e.target,
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(out.Errors) > 0 {
		return Result{}, newSyntaxError(out.Errors)
	}

	specifiers, err := e.scanner.Scan(lang, source)
	if err != nil {
		return Result{}, fmt.Errorf("scan imports: %w", err)
	}

	return Result{
		ImportSpecifiers: specifiers,
		Body:             strings.TrimRight(string(out.Code), "\n"),
	}, nil
}

// MinifyOptions selects the minification passes applied by Minify.
type MinifyOptions struct {
	Whitespace  bool
	Syntax      bool
	Identifiers bool
}

// Minify runs code through esbuild's minifier without changing its module
// format.
func Minify(code string, opts MinifyOptions) (string, error) {
	out := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  opts.Whitespace,
		MinifySyntax:      opts.Syntax,
		MinifyIdentifiers: opts.Identifiers,
		LogLevel:          api.LogLevelSilent,
	})
	if len(out.Errors) > 0 {
		return "", newSyntaxError(out.Errors)
	}

	return string(out.Code), nil
}
