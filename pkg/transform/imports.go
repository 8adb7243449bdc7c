package transform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
)

// Tree-sitter node and field names used to locate module references.
const (
	nodeImportStatement = "import_statement"
	nodeExportStatement = "export_statement"
	nodeCallExpression  = "call_expression"
	nodeString          = "string"
	nodeStringFragment  = "string_fragment"
	nodeEscapeSequence  = "escape_sequence"
	nodeIdentifier      = "identifier"
	nodeImport          = "import"
	nodeType            = "type"

	fieldSource    = "source"
	fieldFunction  = "function"
	fieldArguments = "arguments"

	requireIdent = "require"
)

var (
	errNoRootNode = errors.New("import scanner: no root node")
	errPoolType   = errors.New("import scanner: pool returned unexpected type")
)

var grammarFuncs = map[Language]func() unsafe.Pointer{
	LangJavaScript: javascript.GetLanguage,
	LangJSX:        javascript.GetLanguage,
	LangTypeScript: typescript.GetLanguage,
	LangTSX:        tsx.GetLanguage,
}

// ImportScanner extracts module specifiers from source using tree-sitter.
// It keeps one parser pool per language and is safe for concurrent use.
type ImportScanner struct {
	pools sync.Map // Language -> *sync.Pool
}

// NewImportScanner creates an ImportScanner.
func NewImportScanner() *ImportScanner {
	return &ImportScanner{}
}

func (s *ImportScanner) pool(lang Language) *sync.Pool {
	if cached, ok := s.pools.Load(lang); ok {
		if p, castOK := cached.(*sync.Pool); castOK {
			return p
		}
	}

	getLanguage, ok := grammarFuncs[lang]
	if !ok {
		getLanguage = javascript.GetLanguage
	}

	grammar := sitter.NewLanguage(getLanguage())
	p := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(grammar)

			return tsParser
		},
	}

	actual, _ := s.pools.LoadOrStore(lang, p)

	stored, castOK := actual.(*sync.Pool)
	if !castOK {
		return p
	}

	return stored
}

// Scan returns the specifiers referenced by content in source order:
// static imports (TypeScript type-only imports excluded), re-exports with a
// from clause, require("...") calls and import("...") calls. Specifiers that
// appear more than once are returned more than once.
func (s *ImportScanner) Scan(lang Language, content []byte) ([]string, error) {
	p := s.pool(lang)

	tsParser, ok := p.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.Put(tsParser)

	tree, err := tsParser.ParseString(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("import scanner: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	w := &importWalker{source: content}
	w.visit(root)

	return w.specifiers, nil
}

type importWalker struct {
	source     []byte
	specifiers []string
}

// visit walks the tree in pre-order, which is source order.
func (w *importWalker) visit(n sitter.Node) {
	switch n.Type() {
	case nodeImportStatement:
		if !hasTypeKeyword(n) {
			w.addField(n, fieldSource)
		}

		return
	case nodeExportStatement:
		if hasTypeKeyword(n) {
			return
		}

		if w.addField(n, fieldSource) {
			return
		}
	case nodeCallExpression:
		w.addCall(n)
	}

	for idx := range n.NamedChildCount() {
		w.visit(n.NamedChild(idx))
	}
}

func (w *importWalker) addField(n sitter.Node, field string) bool {
	src := n.ChildByFieldName(field)
	if src.IsNull() || src.Type() != nodeString {
		return false
	}

	w.specifiers = append(w.specifiers, w.stringValue(src))

	return true
}

func (w *importWalker) addCall(n sitter.Node) {
	callee := n.ChildByFieldName(fieldFunction)
	if callee.IsNull() {
		return
	}

	isRequire := callee.Type() == nodeIdentifier && w.text(callee) == requireIdent
	if !isRequire && callee.Type() != nodeImport {
		return
	}

	args := n.ChildByFieldName(fieldArguments)
	if args.IsNull() || args.NamedChildCount() != 1 {
		return
	}

	arg := args.NamedChild(0)
	if arg.Type() != nodeString {
		return
	}

	w.specifiers = append(w.specifiers, w.stringValue(arg))
}

func (w *importWalker) text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(w.source)) || start > end {
		return ""
	}

	return string(w.source[start:end])
}

// stringValue returns the value of a string literal node: fragments are
// copied and escape sequences decoded.
func (w *importWalker) stringValue(n sitter.Node) string {
	var sb strings.Builder

	for idx := range n.NamedChildCount() {
		part := n.NamedChild(idx)

		switch part.Type() {
		case nodeStringFragment:
			sb.WriteString(w.text(part))
		case nodeEscapeSequence:
			sb.WriteString(decodeEscape(w.text(part)))
		}
	}

	return sb.String()
}

// decodeEscape decodes one JavaScript escape sequence. Line continuations
// decode to nothing and unknown escapes to the escaped character.
func decodeEscape(seq string) string {
	body := strings.TrimPrefix(seq, `\`)

	switch {
	case body == "" || body[0] == '\n' || body[0] == '\r':
		return ""
	case strings.HasPrefix(body, "u{") && strings.HasSuffix(body, "}"):
		code, err := strconv.ParseUint(body[2:len(body)-1], 16, 32)
		if err != nil {
			return body
		}

		return string(rune(code))
	case body == "'":
		return "'"
	}

	value, _, tail, err := strconv.UnquoteChar(seq, '"')
	if err != nil || tail != "" {
		return body
	}

	return string(value)
}

// hasTypeKeyword reports `import type ...` / `export type ... from`.
func hasTypeKeyword(n sitter.Node) bool {
	for idx := range n.ChildCount() {
		if n.Child(idx).Type() == nodeType {
			return true
		}
	}

	return false
}
