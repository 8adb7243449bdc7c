// Package emit serializes a module graph into one self-executing JavaScript
// artifact with a small require runtime.
package emit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/graph"
	"github.com/Sumatoshi-tech/bundlefang/pkg/transform"
)

// ArtifactPath names the artifact in minifier diagnostics.
const ArtifactPath = "<bundle>"

//go:embed runtime.js.tmpl
var runtimeSource string

var runtimeTemplate = template.Must(template.New("runtime").Parse(runtimeSource))

// Options controls artifact generation. The zero value produces the plain
// runtime: no module cache, no minification, no banner.
type Options struct {
	// Banner is written as leading line comments, one per line.
	Banner string
	// CacheModules makes require execute each module body at most once and
	// hand out the same exports object afterwards. The cache entry is set
	// before the body runs, so a cyclic require sees the partial exports.
	CacheModules bool
	// Minify runs the artifact through the whitespace and syntax minifier.
	Minify bool
}

type moduleEntry struct {
	Body    string
	Mapping string
	Path    string
	ID      int
}

type runtimeData struct {
	Modules      []moduleEntry
	EntryID      int
	CacheModules bool
}

// Emit renders g as a standalone program that runs the entry asset. The
// output is a pure function of the graph and options.
func Emit(g *graph.ModuleGraph, opts Options) (string, error) {
	err := g.Validate()
	if err != nil {
		return "", fmt.Errorf("emit: %w", err)
	}

	data := runtimeData{
		EntryID:      g.EntryID,
		CacheModules: opts.CacheModules,
		Modules:      make([]moduleEntry, 0, g.Len()),
	}

	for _, a := range g.Assets {
		// Map keys marshal in sorted order.
		mapping, marshalErr := json.Marshal(a.Mapping)
		if marshalErr != nil {
			return "", fmt.Errorf("emit %s mapping: %w", a.SourcePath, marshalErr)
		}

		path, marshalErr := json.Marshal(a.SourcePath)
		if marshalErr != nil {
			return "", fmt.Errorf("emit %s path: %w", a.SourcePath, marshalErr)
		}

		data.Modules = append(data.Modules, moduleEntry{
			ID:      a.ID,
			Body:    a.Body,
			Mapping: string(mapping),
			Path:    string(path),
		})
	}

	var sb strings.Builder

	err = runtimeTemplate.Execute(&sb, data)
	if err != nil {
		return "", fmt.Errorf("render runtime: %w", err)
	}

	artifact := sb.String()

	if opts.Minify {
		artifact, err = transform.Minify(artifact, transform.MinifyOptions{Whitespace: true, Syntax: true})
		if err != nil {
			return "", bundleerr.Transform(ArtifactPath, err)
		}
	}

	if opts.Banner != "" {
		artifact = bannerComment(opts.Banner) + artifact
	}

	return artifact, nil
}

func bannerComment(banner string) string {
	var sb strings.Builder

	for line := range strings.SplitSeq(strings.TrimRight(banner, "\n"), "\n") {
		sb.WriteString("// ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	return sb.String()
}
