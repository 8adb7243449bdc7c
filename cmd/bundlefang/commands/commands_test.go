package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bundlefang/cmd/bundlefang/commands"
	"github.com/Sumatoshi-tech/bundlefang/internal/jsrun"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/report"
)

type cliResult struct {
	err    error
	stdout string
	stderr string
}

func newProject(t *testing.T) afero.Fs {
	t.Helper()

	memFs := afero.NewMemMapFs()

	files := map[string]string{
		"web/main.js":   "const a = require(\"./a.js\");\nconst b = require(\"./b.js\");\nconsole.log(a + \" \" + b);\n",
		"web/a.js":      "module.exports = \"hello \" + require(\"./name.js\");\n",
		"web/b.js":      "module.exports = \"bye \" + require(\"./name.js\");\n",
		"web/name.js":   "module.exports = \"world\";\n",
		"web/broken.js": "require(\"./nowhere.js\");\n",
	}

	for path, content := range files {
		require.NoError(t, afero.WriteFile(memFs, path, []byte(content), 0o600))
	}

	return memFs
}

func emptyConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".bundlefang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(t *testing.T, memFs afero.Fs, configContent string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer

	g := &commands.GlobalOptions{Fs: memFs}
	root := commands.NewRootCommand(g)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", emptyConfig(t, configContent), "--quiet"}, args...))

	err := root.ExecuteContext(context.Background())

	return cliResult{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

func TestBundle_WritesArtifactToStdout(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "bundle", "web/main.js")
	require.NoError(t, res.err)

	logs, err := jsrun.Capture(context.Background(), res.stdout)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world bye world"}, logs)
}

func TestBundle_ConfigBannerAndFlagOverride(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "emit:\n  banner: from config\n", "bundle", "--cache-modules=false", "web/main.js")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "// from config\n")
	assert.NotContains(t, res.stdout, "var cache")
}

func TestBundle_OutputAndCheck(t *testing.T) {
	t.Parallel()

	memFs := newProject(t)

	res := execute(t, memFs, "", "bundle", "-o", "dist/app.js", "web/main.js")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	written, err := afero.ReadFile(memFs, "dist/app.js")
	require.NoError(t, err)
	assert.Contains(t, string(written), "require(0);")

	res = execute(t, memFs, "", "bundle", "--check", "-o", "dist/app.js", "web/main.js")
	require.NoError(t, res.err)

	require.NoError(t, afero.WriteFile(memFs, "web/name.js", []byte("module.exports = \"moon\";\n"), 0o600))

	res = execute(t, memFs, "", "bundle", "--check", "-o", "dist/app.js", "web/main.js")
	require.ErrorIs(t, res.err, commands.ErrStale)
	assert.Equal(t, commands.ExitStale, commands.ExitCode(res.err))
	assert.Contains(t, res.stderr, "- module.exports = \"world\";")
	assert.Contains(t, res.stderr, "+ module.exports = \"moon\";")

	unchanged, err := afero.ReadFile(memFs, "dist/app.js")
	require.NoError(t, err)
	assert.Equal(t, written, unchanged)
}

func TestBundle_CheckRequiresOutput(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "bundle", "--check", "web/main.js")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--output")
}

func TestBundle_MissingImportExitCode(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "bundle", "web/broken.js")
	require.ErrorIs(t, res.err, bundleerr.ErrIO)
	assert.Empty(t, res.stdout)
	assert.Equal(t, commands.ExitKindBase+int(bundleerr.KindIO), commands.ExitCode(res.err))
}

func TestBundle_BadConfig(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "transform:\n  target: es3\n", "bundle", "web/main.js")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "load config")
}

func TestGraph_JSONWithDedupeFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		assets int
	}{
		{name: "config default dedupes", args: nil, assets: 4},
		{name: "flag disables dedupe", args: []string{"--dedupe=false"}, assets: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"graph", "--format", "json"}, tt.args...)
			res := execute(t, newProject(t), "", append(args, "web/main.js")...)
			require.NoError(t, res.err)
			require.NoError(t, report.ValidateJSON([]byte(res.stdout)))

			var summary report.Summary
			require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))

			assert.Equal(t, "web/main.js", summary.Entry)
			assert.Len(t, summary.Assets, tt.assets)
		})
	}
}

func TestGraph_UnknownFormat(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "graph", "--format", "svg", "web/main.js")
	require.ErrorIs(t, res.err, report.ErrUnknownFormat)
}

func TestRun_ExecutesBundle(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "run", "web/main.js")
	require.NoError(t, res.err)
	assert.Equal(t, "hello world bye world\n", res.stdout)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	res := execute(t, nil, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "bundlefang ")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, commands.ExitOK, commands.ExitCode(nil))
	assert.Equal(t, commands.ExitFailure, commands.ExitCode(errors.New("boom")))
	assert.Equal(t, 14, commands.ExitCode(bundleerr.CyclicImport([]string{"a.js", "a.js"})))
}

func TestBundle_RequiresEntry(t *testing.T) {
	t.Parallel()

	res := execute(t, newProject(t), "", "bundle")
	require.Error(t, res.err)
}
