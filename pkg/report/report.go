// Package report renders a module graph for people and tools.
package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/bundlefang/pkg/graph"
)

// Format selects an output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatDOT   Format = "dot"
)

//go:generate go run ../../tools/schemagen -o .

// summarySchema is the JSON schema of Summary, generated by tools/schemagen.
//
//go:embed summary.schema.json
var summarySchema []byte

var (
	// ErrUnknownFormat is returned for a format name not in Formats.
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrInvalidSummary is returned by ValidateJSON for documents that do
	// not match the summary schema.
	ErrInvalidSummary = errors.New("graph summary does not match schema")
)

// Formats lists the accepted format names.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatYAML, FormatDOT}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Formats(), f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	return f, nil
}

// Asset is one row of a graph summary.
type Asset struct {
	Mapping map[string]int `json:"mapping"  yaml:"mapping"`
	Path    string         `json:"path"     yaml:"path"`
	Imports []string       `json:"imports"  yaml:"imports"`
	ID      int            `json:"id"       yaml:"id"`
	Bytes   int            `json:"bytes"    yaml:"bytes"`
}

// Summary is the serializable view of a module graph.
type Summary struct {
	Entry  string       `json:"entry"  yaml:"entry"`
	Assets []Asset      `json:"assets" yaml:"assets"`
	Edges  []graph.Edge `json:"edges"  yaml:"edges"`
}

// Summarize builds a Summary of g.
func Summarize(g *graph.ModuleGraph) Summary {
	s := Summary{
		Assets: make([]Asset, 0, g.Len()),
		Edges:  g.Edges(),
	}

	if s.Edges == nil {
		s.Edges = []graph.Edge{}
	}

	if entry := g.Entry(); entry != nil {
		s.Entry = entry.SourcePath
	}

	for _, a := range g.Assets {
		imports := a.ImportSpecifiers
		if imports == nil {
			imports = []string{}
		}

		mapping := a.Mapping
		if mapping == nil {
			mapping = map[string]int{}
		}

		s.Assets = append(s.Assets, Asset{
			ID:      a.ID,
			Path:    a.SourcePath,
			Imports: imports,
			Mapping: mapping,
			Bytes:   len(a.Body),
		})
	}

	return s
}

// Schema returns the JSON schema of the json format.
func Schema() []byte {
	return slices.Clone(summarySchema)
}

// ValidateJSON checks a json-format report against Schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(summarySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate summary: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidSummary, strings.Join(msgs, "; "))
}

// Write renders g to w in the given format.
func Write(w io.Writer, g *graph.ModuleGraph, format Format) error {
	switch format {
	case FormatTable:
		return writeTable(w, g)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(Summarize(g)); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2) //nolint:mnd // two-space YAML indent

		if err := enc.Encode(Summarize(g)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatDOT:
		return writeDOT(w, g)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeTable(w io.Writer, g *graph.ModuleGraph) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"ID", "Path", "Imports", "Size", "Depends on"})

	var total int

	for _, a := range g.Assets {
		deps := make([]int, 0, len(a.Mapping))
		for _, id := range a.Mapping {
			deps = append(deps, id)
		}

		slices.Sort(deps)
		deps = slices.Compact(deps)

		depText := make([]string, 0, len(deps))
		for _, id := range deps {
			depText = append(depText, strconv.Itoa(id))
		}

		total += len(a.Body)

		tbl.AppendRow(table.Row{
			a.ID,
			a.SourcePath,
			len(a.ImportSpecifiers),
			humanize.Bytes(uint64(len(a.Body))),
			strings.Join(depText, ", "),
		})
	}

	tbl.AppendFooter(table.Row{
		"", fmt.Sprintf("Total: %d assets", g.Len()), "", humanize.Bytes(uint64(total)), "",
	})

	tbl.Render()

	return nil
}

func writeDOT(w io.Writer, g *graph.ModuleGraph) error {
	var sb strings.Builder

	sb.WriteString("digraph bundle {\n  rankdir=LR;\n  node [shape=box];\n")

	for _, a := range g.Assets {
		fmt.Fprintf(&sb, "  n%d [label=%s];\n", a.ID, dotQuote(a.SourcePath))
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(&sb, "  n%d -> n%d [label=%s];\n", e.From, e.To, dotQuote(e.Specifier))
	}

	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write dot: %w", err)
	}

	return nil
}

// dotQuote makes a DOT double-quoted string; only '"' and '\' need escaping.
func dotQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
