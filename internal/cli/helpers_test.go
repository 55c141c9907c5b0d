package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// useConfig points --config at path for the duration of the test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
}

// tempConfig writes content to a config file in a temp dir and selects it.
func tempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	useConfig(t, path)
	return path
}

const twoHosts = `version: 1
include_local: true
hosts:
  - id: 11111111-aaaa-bbbb-cccc-000000000001
    name: web
    address: 10.0.0.5
    user: ops
    enabled: true
  - id: 22222222-aaaa-bbbb-cccc-000000000002
    name: db
    address: 10.0.0.6
    port: 2222
    password: hunter2
    enabled: false
`
