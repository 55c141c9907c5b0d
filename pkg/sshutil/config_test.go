package sshutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAliasesFile(t *testing.T) {
	path := writeSSHConfig(t, `
Host *
  ServerAliveInterval 30

Host web db
  HostName 10.0.0.9
  User deploy

Host gpu
  HostName 192.168.1.50
  Port 2022
  IdentityFile /keys/gpu
`)

	aliases, err := ListAliasesFile(path)
	require.NoError(t, err)
	require.Len(t, aliases, 3)

	assert.Equal(t, "db", aliases[0].Name)
	assert.Equal(t, "gpu", aliases[1].Name)
	assert.Equal(t, "web", aliases[2].Name)

	assert.Equal(t, 2022, aliases[1].Port)
	assert.Equal(t, "/keys/gpu", aliases[1].IdentityFile)
	assert.Equal(t, "192.168.1.50, port: 2022", aliases[1].Description())
	assert.Equal(t, "10.0.0.9, user: deploy", aliases[2].Description())
}

func TestListAliasesFile_Missing(t *testing.T) {
	aliases, err := ListAliasesFile(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestAliasDescription_Bare(t *testing.T) {
	assert.Equal(t, "box", Alias{Name: "box"}.Description())
}
