package transform

import (
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/src-d/enry/v2"
)

// Language is a source dialect the default transformer understands.
type Language string

// Supported languages.
const (
	LangJavaScript Language = "javascript"
	LangJSX        Language = "jsx"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// Linguist language names returned by enry.
const (
	enryJavaScript = "JavaScript"
	enryTypeScript = "TypeScript"
)

const (
	extJSX = ".jsx"
	extTSX = ".tsx"
)

// DetectLanguage picks the dialect for path from its file name. Files enry
// does not recognise, including extensionless ones, are read as JavaScript.
func DetectLanguage(path string) Language {
	name := filepath.Base(path)

	// JSX flavours share a linguist entry with their base language.
	switch strings.ToLower(filepath.Ext(name)) {
	case extJSX:
		return LangJSX
	case extTSX:
		return LangTSX
	}

	for _, lang := range enry.GetLanguagesByExtension(name, nil, nil) {
		switch lang {
		case enryTypeScript:
			return LangTypeScript
		case enryJavaScript:
			return LangJavaScript
		}
	}

	return LangJavaScript
}

// loader maps a language to the esbuild loader that accepts it.
func (l Language) loader() api.Loader {
	switch l {
	case LangJSX:
		return api.LoaderJSX
	case LangTypeScript:
		return api.LoaderTS
	case LangTSX:
		return api.LoaderTSX
	case LangJavaScript:
		return api.LoaderJS
	default:
		return api.LoaderJS
	}
}
