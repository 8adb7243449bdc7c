// Package bundleerr defines the failure kinds a bundling run can abort with.
//
// Every error returned by the resolver, loader, graph builder and emitter is
// either an [*Error] or wraps one, so callers can branch on [Kind] with
// [KindOf] or match a family with errors.Is against the sentinels below.
package bundleerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a bundling failure.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that did not originate here.
	KindUnknown Kind = iota
	// KindIO means a source file could not be read.
	KindIO
	// KindTransform means the parse/transform collaborator rejected a file.
	KindTransform
	// KindResolution means a specifier could not be turned into a file path.
	KindResolution
	// KindCyclicImport means the import relation contains a cycle.
	KindCyclicImport
)

// Sentinel errors, one per kind.
var (
	ErrIO           = errors.New("io error")
	ErrTransform    = errors.New("transform error")
	ErrResolution   = errors.New("resolution error")
	ErrCyclicImport = errors.New("cyclic import")
)

// chainSeparator joins import chains in error messages.
const chainSeparator = " -> "

// String returns the lowercase kind name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindTransform:
		return "transform"
	case KindResolution:
		return "resolution"
	case KindCyclicImport:
		return "cyclic_import"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindTransform:
		return ErrTransform
	case KindResolution:
		return ErrResolution
	case KindCyclicImport:
		return ErrCyclicImport
	case KindUnknown:
		return nil
	default:
		return nil
	}
}

// Error is a typed bundling failure.
type Error struct {
	// Err is the underlying cause, if any.
	Err error
	// Path is the file being processed when the failure happened.
	Path string
	// Specifier is the raw import specifier involved, if any.
	Specifier string
	// Chain lists the file paths forming an import cycle.
	Chain []string
	Kind  Kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	if s := e.Kind.sentinel(); s != nil {
		sb.WriteString(s.Error())
	} else {
		sb.WriteString("bundle error")
	}

	if e.Path != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Path)
	}

	if e.Specifier != "" {
		fmt.Fprintf(&sb, ": specifier %q", e.Specifier)
	}

	if len(e.Chain) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Chain, chainSeparator))
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2) //nolint:mnd // sentinel + cause

	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// IO reports that path could not be read.
func IO(path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// Transform reports that the collaborator could not parse or transform path.
func Transform(path string, err error) *Error {
	return &Error{Kind: KindTransform, Path: path, Err: err}
}

// Resolution reports that specifier, written in path, could not be resolved.
func Resolution(path, specifier string, err error) *Error {
	return &Error{Kind: KindResolution, Path: path, Specifier: specifier, Err: err}
}

// CyclicImport reports an import cycle. The chain starts and ends with the
// same path.
func CyclicImport(chain []string) *Error {
	cp := make([]string, len(chain))
	copy(cp, chain)

	return &Error{Kind: KindCyclicImport, Chain: cp}
}

// KindOf returns the kind of the first *Error found in err's tree.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	return KindUnknown
}
