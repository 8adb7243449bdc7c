package graph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/bundlefang/pkg/asset"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/resolve"
)

// noParent marks the entry asset in the discovery tree.
const noParent = -1

// SourceLoader loads one file. *asset.Loader implements it.
type SourceLoader interface {
	Load(path string) (asset.Source, error)
}

// Options tunes graph construction. The zero value loads a fresh asset for
// every import edge and does not look for cycles, so a cyclic program never
// finishes building.
type Options struct {
	// Logger receives per-asset debug records. Nil discards them.
	Logger *slog.Logger
	// Dedupe reuses the asset already loaded for a resolved path instead of
	// loading the file again.
	Dedupe bool
	// DetectCycles fails the build with bundleerr.KindCyclicImport when an
	// import leads back to a file on the current import chain.
	DetectCycles bool
}

// Builder constructs module graphs. It holds no per-build state, so one
// Builder may run several builds, including concurrently.
type Builder struct {
	loader SourceLoader
	logger *slog.Logger
	opts   Options
}

// NewBuilder creates a Builder that loads files with loader.
func NewBuilder(loader SourceLoader, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Builder{loader: loader, logger: logger, opts: opts}
}

// Build discovers every asset reachable from entryPath breadth-first and
// returns the graph. The first resolution or load error aborts the build
// and no graph is returned. entryPath is cleaned the same way resolved
// imports are, so the entry compares equal to imports that lead back to it.
func (b *Builder) Build(ctx context.Context, entryPath string) (*ModuleGraph, error) {
	entryPath = filepath.Clean(entryPath)

	run := &buildRun{
		Builder: b,
		byPath:  make(map[string]int),
	}

	entry, err := run.load(ctx, entryPath, noParent)
	if err != nil {
		return nil, err
	}

	queue := []*asset.Asset{entry}

	for len(queue) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("build graph: %w", ctxErr)
		}

		current := queue[0]
		queue = queue[1:]

		children, expandErr := run.expand(ctx, current)
		if expandErr != nil {
			return nil, expandErr
		}

		queue = append(queue, children...)
	}

	g := &ModuleGraph{Assets: run.assets, EntryID: EntryID}

	if b.opts.DetectCycles && b.opts.Dedupe {
		if cycle := g.FindCycle(); cycle != nil {
			return nil, bundleerr.CyclicImport(cycle)
		}
	}

	return g, nil
}

// buildRun is the mutable state of one Build call.
type buildRun struct {
	*Builder

	byPath  map[string]int
	assets  []*asset.Asset
	parents []int
	seq     asset.Sequence
}

// expand resolves and loads the imports of current, filling its mapping.
// It returns the newly created assets in the order they were loaded.
func (r *buildRun) expand(ctx context.Context, current *asset.Asset) ([]*asset.Asset, error) {
	var children []*asset.Asset

	for _, spec := range current.ImportSpecifiers {
		resolved, err := resolve.Resolve(current.SourcePath, spec)
		if err != nil {
			return nil, err
		}

		if r.opts.DetectCycles {
			if cycle := r.cycleThrough(current.ID, resolved); cycle != nil {
				return nil, bundleerr.CyclicImport(cycle)
			}
		}

		if r.opts.Dedupe {
			if id, ok := r.byPath[resolved]; ok {
				current.Mapping[spec] = id

				continue
			}
		}

		child, err := r.load(ctx, resolved, current.ID)
		if err != nil {
			return nil, err
		}

		current.Mapping[spec] = child.ID
		children = append(children, child)
	}

	return children, nil
}

// load reads path and registers it as the next asset.
func (r *buildRun) load(ctx context.Context, path string, parent int) (*asset.Asset, error) {
	src, err := r.loader.Load(path)
	if err != nil {
		return nil, err
	}

	a := asset.New(r.seq.Next(), path, src)

	r.assets = append(r.assets, a)
	r.parents = append(r.parents, parent)

	if _, seen := r.byPath[path]; !seen {
		r.byPath[path] = a.ID
	}

	r.logger.DebugContext(ctx, "asset loaded",
		"id", a.ID,
		"path", path,
		"imports", len(src.ImportSpecifiers),
		"parent", parent,
	)

	return a, nil
}

// cycleThrough walks the discovery chain from id back to the entry. If path
// is on it, the cycle from that point through id and back to path is
// returned.
func (r *buildRun) cycleThrough(id int, path string) []string {
	var chain []string

	for cur := id; cur != noParent; cur = r.parents[cur] {
		chain = append(chain, r.assets[cur].SourcePath)

		if r.assets[cur].SourcePath == path {
			slices.Reverse(chain)

			return append(chain, path)
		}
	}

	return nil
}
