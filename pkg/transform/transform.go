// Package transform converts one source file into the pieces the bundler
// embeds: the ordered list of import specifiers it references and the body
// rewritten to the require/module/exports calling convention.
//
// The bundler treats a [Transformer] as an opaque, trusted collaborator. The
// default implementation returned by [New] parses with tree-sitter to find
// imports and uses esbuild to produce a CommonJS body.
package transform

// Result is the output of transforming a single file.
type Result struct {
	// ImportSpecifiers lists raw specifiers in source order, duplicates kept.
	ImportSpecifiers []string
	// Body is the transformed source, embedded verbatim into the bundle.
	Body string
}

// Transformer parses and rewrites one file's source text.
type Transformer interface {
	Transform(path string, source []byte) (Result, error)
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(path string, source []byte) (Result, error)

// Transform calls f(path, source).
func (f Func) Transform(path string, source []byte) (Result, error) {
	return f(path, source)
}
