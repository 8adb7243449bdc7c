package observability

import (
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// maxAttrValueLen caps string attribute values, in bytes. Error messages can
// quote source snippets.
const maxAttrValueLen = 512

const truncatedMarker = "…"

// exportedNamespaces are the attribute key prefixes bundlefang spans may
// export. Anything else is dropped.
var exportedNamespaces = []string{
	"bundle.",
	"graph.",
	"asset.",
	"emit.",
	"transform.",
	"error.",
}

// contentKeys carry module or artifact text and are never exported.
var contentKeys = map[attribute.Key]struct{}{
	"asset.body":   {},
	"asset.source": {},
	"bundle.code":  {},
}

// NewScrubProcessor wraps delegate so that ended spans only expose attributes
// in the bundlefang namespaces, without module content, and with long string
// values truncated.
func NewScrubProcessor(delegate sdktrace.SpanProcessor) sdktrace.SpanProcessor {
	return scrubProcessor{SpanProcessor: delegate}
}

type scrubProcessor struct {
	sdktrace.SpanProcessor
}

func (p scrubProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	kept, dropped := scrubAttributes(s.Attributes())

	p.SpanProcessor.OnEnd(scrubbedSpan{ReadOnlySpan: s, attrs: kept, dropped: dropped})
}

// scrubbedSpan replaces the attribute view of a finished span.
type scrubbedSpan struct {
	sdktrace.ReadOnlySpan

	attrs   []attribute.KeyValue
	dropped int
}

func (s scrubbedSpan) Attributes() []attribute.KeyValue { return s.attrs }

func (s scrubbedSpan) DroppedAttributes() int {
	return s.ReadOnlySpan.DroppedAttributes() + s.dropped
}

func scrubAttributes(attrs []attribute.KeyValue) ([]attribute.KeyValue, int) {
	kept := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		if !exportable(kv.Key) {
			continue
		}

		if kv.Value.Type() == attribute.STRING {
			kv = attribute.String(string(kv.Key), truncate(kv.Value.AsString()))
		}

		kept = append(kept, kv)
	}

	return kept, len(attrs) - len(kept)
}

func exportable(key attribute.Key) bool {
	if _, ok := contentKeys[key]; ok {
		return false
	}

	for _, ns := range exportedNamespaces {
		if strings.HasPrefix(string(key), ns) {
			return true
		}
	}

	return false
}

// truncate cuts s to at most maxAttrValueLen bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxAttrValueLen {
		return s
	}

	cut := maxAttrValueLen - len(truncatedMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + truncatedMarker
}
