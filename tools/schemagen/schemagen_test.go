package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bundlefang/pkg/report"
)

func TestGeneratedSchemaIsCurrent(t *testing.T) {
	t.Parallel()

	data, err := render(generateSchema(reflect.TypeFor[report.Summary]()))
	require.NoError(t, err)

	committed, err := os.ReadFile(filepath.Join("..", "..", "pkg", "report", schemaFile))
	require.NoError(t, err)

	assert.JSONEq(t, string(committed), string(data), "run go generate ./pkg/report")
	assert.JSONEq(t, string(report.Schema()), string(data))
}

func TestTypeToSchema(t *testing.T) {
	t.Parallel()

	type nested struct {
		Name  string            `json:"name"`
		Tags  []string          `json:"tags,omitempty"`
		Score float64           `json:"score"`
		Seen  map[string]bool   `json:"seen"`
		Skip  int               `json:"-"`
		Inner struct{ On bool } `json:"inner"`
	}

	defs := make(map[string]*Schema)
	got := typeToSchema(reflect.TypeFor[*nested](), defs)

	assert.Equal(t, "#/definitions/nested", got.Ref)
	require.Contains(t, defs, "nested")

	def := defs["nested"]
	assert.Equal(t, []string{"name", "score", "seen", "inner"}, def.Required)
	assert.Equal(t, "array", def.Properties["tags"].Type)
	assert.Equal(t, "number", def.Properties["score"].Type)
	assert.Equal(t, "boolean", def.Properties["seen"].AdditionalProperties.Type)
	assert.NotContains(t, def.Properties, "Skip")
	assert.Equal(t, "object", def.Properties["inner"].Type)
}
