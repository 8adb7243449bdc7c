// Package resolve turns import specifiers into concrete file paths.
package resolve

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
)

// Sentinel causes wrapped into a resolution error.
var (
	ErrEmptySpecifier = errors.New("empty specifier")
	ErrNulByte        = errors.New("specifier contains a NUL byte")
	ErrDirectory      = errors.New("specifier names a directory")
)

// Resolve joins the directory of containingFile with specifier and cleans
// the result. Specifiers are taken exactly as written: there is no extension
// inference and no package lookup. The file is not required to exist.
func Resolve(containingFile, specifier string) (string, error) {
	if strings.TrimSpace(specifier) == "" {
		return "", bundleerr.Resolution(containingFile, specifier, ErrEmptySpecifier)
	}

	if strings.ContainsRune(specifier, 0) {
		return "", bundleerr.Resolution(containingFile, specifier, ErrNulByte)
	}

	if isDirectorySpecifier(specifier) {
		return "", bundleerr.Resolution(containingFile, specifier, ErrDirectory)
	}

	dir := filepath.Dir(containingFile)
	resolved := filepath.Join(dir, filepath.FromSlash(specifier))

	if resolved == "." || resolved == filepath.Clean(dir) {
		return "", bundleerr.Resolution(containingFile, specifier, ErrDirectory)
	}

	return resolved, nil
}

// isDirectorySpecifier reports specifiers whose last segment cannot name a file.
func isDirectorySpecifier(specifier string) bool {
	if strings.HasSuffix(specifier, "/") {
		return true
	}

	last := specifier
	if i := strings.LastIndex(specifier, "/"); i >= 0 {
		last = specifier[i+1:]
	}

	return last == "." || last == ".."
}
