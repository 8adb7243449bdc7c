package asset

import (
	"github.com/spf13/afero"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/transform"
)

// Source is what the loader extracts from one file.
type Source struct {
	// ImportSpecifiers lists raw specifiers in source order, duplicates kept.
	ImportSpecifiers []string
	// Body is the transformed source text.
	Body string
}

// Loader reads files from a filesystem and runs them through a transformer.
type Loader struct {
	fs          afero.Fs
	transformer transform.Transformer
}

// NewLoader creates a Loader reading from fs. A nil fs means the OS
// filesystem.
func NewLoader(fs afero.Fs, transformer transform.Transformer) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Loader{fs: fs, transformer: transformer}
}

// Load reads path and transforms it. Read failures are reported as
// bundleerr.KindIO, collaborator failures as bundleerr.KindTransform.
func (l *Loader) Load(path string) (Source, error) {
	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return Source{}, bundleerr.IO(path, err)
	}

	res, err := l.transformer.Transform(path, content)
	if err != nil {
		return Source{}, bundleerr.Transform(path, err)
	}

	return Source{
		ImportSpecifiers: res.ImportSpecifiers,
		Body:             res.Body,
	}, nil
}
