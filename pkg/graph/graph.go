// Package graph builds the whole-program module graph from an entry file.
package graph

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bundlefang/pkg/asset"
	"github.com/Sumatoshi-tech/bundlefang/pkg/toposort"
)

// EntryID is the identity of the entry asset in every graph.
const EntryID = 0

// Sentinel validation errors.
var (
	ErrEmptyGraph     = errors.New("module graph has no assets")
	ErrBadEntry       = errors.New("module graph entry is not identity 0")
	ErrIdentityGap    = errors.New("asset identities are not contiguous")
	ErrDanglingEdge   = errors.New("mapping points at a missing asset")
	ErrUnmappedImport = errors.New("import specifier has no mapping")
)

// ModuleGraph is the ordered collection of assets discovered from one entry.
// Assets[i].ID == i, and Assets[EntryID] is the entry file.
type ModuleGraph struct {
	Assets  []*asset.Asset
	EntryID int
}

// Edge is one resolved import.
type Edge struct {
	Specifier string `json:"specifier" yaml:"specifier"`
	From      int    `json:"from"      yaml:"from"`
	To        int    `json:"to"        yaml:"to"`
}

// Len returns the number of assets.
func (g *ModuleGraph) Len() int {
	return len(g.Assets)
}

// Asset returns the asset with the given identity.
func (g *ModuleGraph) Asset(id int) (*asset.Asset, bool) {
	if id < 0 || id >= len(g.Assets) {
		return nil, false
	}

	return g.Assets[id], true
}

// Entry returns the entry asset, or nil for an empty graph.
func (g *ModuleGraph) Entry() *asset.Asset {
	a, _ := g.Asset(g.EntryID)

	return a
}

// Validate checks the graph invariants: a non-empty, gap-free identity range
// matching slice order, entry at identity 0, every import specifier mapped,
// and no mapping pointing outside the graph.
func (g *ModuleGraph) Validate() error {
	if len(g.Assets) == 0 {
		return ErrEmptyGraph
	}

	if g.EntryID != EntryID {
		return fmt.Errorf("%w: got %d", ErrBadEntry, g.EntryID)
	}

	for i, a := range g.Assets {
		if a == nil || a.ID != i {
			return fmt.Errorf("%w: position %d", ErrIdentityGap, i)
		}
	}

	for _, a := range g.Assets {
		for _, spec := range a.ImportSpecifiers {
			if _, ok := a.Mapping[spec]; !ok {
				return fmt.Errorf("%w: %s imports %q", ErrUnmappedImport, a.SourcePath, spec)
			}
		}

		for spec, to := range a.Mapping {
			if to < 0 || to >= len(g.Assets) {
				return fmt.Errorf("%w: %s maps %q to %d", ErrDanglingEdge, a.SourcePath, spec, to)
			}
		}
	}

	return nil
}

// Edges lists every resolved import, grouped by importing asset in identity
// order and, within an asset, in first-appearance order of the specifier.
func (g *ModuleGraph) Edges() []Edge {
	var edges []Edge

	for _, a := range g.Assets {
		seen := make(map[string]bool, len(a.ImportSpecifiers))

		for _, spec := range a.ImportSpecifiers {
			if seen[spec] {
				continue
			}

			seen[spec] = true

			to, ok := a.Mapping[spec]
			if !ok {
				continue
			}

			edges = append(edges, Edge{From: a.ID, To: to, Specifier: spec})
		}
	}

	return edges
}

// IntGraph returns the import relation as a toposort.IntGraph over asset
// identities.
func (g *ModuleGraph) IntGraph() *toposort.IntGraph {
	ig := toposort.NewIntGraph()

	if len(g.Assets) > 0 {
		ig.AddNode(len(g.Assets) - 1)
	}

	for _, e := range g.Edges() {
		ig.AddEdge(e.From, e.To)
	}

	return ig
}

// FindCycle returns the source paths of one import cycle, first path
// repeated at the end, or nil when the graph is acyclic.
func (g *ModuleGraph) FindCycle() []string {
	ids := g.IntGraph().FindAnyCycle()
	if len(ids) == 0 {
		return nil
	}

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, g.Assets[id].SourcePath)
	}

	return paths
}
