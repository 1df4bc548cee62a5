package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/store"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeed(t, `
templates:
  - name: jupyter
    template_name: jupyter-chart
    template_version: v2.0.0
    verbose_name: Jupyter Lab
    tags: [notebook, python]
    input:
      preset:
        name: cpu-large
  - name: private-tool
    template_name: tool-chart
    template_version: v1.0.0
    is_shared: false
    handler_class: service-deployment
`)

	templates, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	jupyter := templates[0]
	assert.Equal(t, "jupyter", jupyter.Name)
	assert.Equal(t, "Jupyter Lab", jupyter.VerboseName)
	assert.Equal(t, store.StringList{"notebook", "python"}, jupyter.Tags)
	assert.True(t, jupyter.IsShared, "sharing defaults to true")
	preset := jupyter.Input["preset"].(map[string]interface{})
	assert.Equal(t, "cpu-large", preset["name"])

	tool := templates[1]
	assert.False(t, tool.IsShared)
	require.NotNil(t, tool.HandlerClass)
	assert.Equal(t, "service-deployment", *tool.HandlerClass)
}

func TestLoadSeedFileValidation(t *testing.T) {
	path := writeSeed(t, `
templates:
  - name: incomplete
    template_name: x
`)

	_, err := LoadSeedFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template_version")
}

func TestLoadSeedFileMissing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
