// Package asset loads single source files into bundlable units.
package asset

// Asset is one file's bundlable unit.
type Asset struct {
	// Mapping resolves each distinct import specifier to an asset identity.
	// It is never nil; leaf assets have an empty mapping.
	Mapping map[string]int
	// SourcePath is the path the asset was loaded from and against which its
	// specifiers are resolved.
	SourcePath string
	// Body is the transformed, embeddable source text.
	Body string
	// ImportSpecifiers lists raw specifiers in source order, duplicates kept.
	ImportSpecifiers []string
	// ID is the identity assigned at discovery time.
	ID int
}

// New creates an asset with the given identity from a loaded source.
func New(id int, path string, src Source) *Asset {
	return &Asset{
		ID:               id,
		SourcePath:       path,
		ImportSpecifiers: src.ImportSpecifiers,
		Body:             src.Body,
		Mapping:          make(map[string]int, len(src.ImportSpecifiers)),
	}
}

// Sequence hands out asset identities starting at 0. Each value is issued
// once. The zero value is ready to use; a Sequence must not be shared across
// concurrent builds.
type Sequence struct {
	next int
}

// Next returns the next identity.
func (s *Sequence) Next() int {
	id := s.next
	s.next++

	return id
}

// Issued returns how many identities have been handed out.
func (s *Sequence) Issued() int {
	return s.next
}
