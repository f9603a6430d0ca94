package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/store"
)

func TestLoadSeedFileReturnsNilForMissingFile(t *testing.T) {
	sf, err := LoadSeedFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Nil(t, sf)
}

func TestLoadSeedFileParsesServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	const content = `
servers:
  - serverId: srv-a
    token: tok-a
    active: true
  - serverId: srv-b
    token: tok-b
    active: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	sf, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.NotNil(t, sf)
	require.Len(t, sf.Servers, 2)
	assert.Equal(t, "srv-a", sf.Servers[0].ServerID)
	assert.True(t, sf.Servers[0].Active)
	assert.False(t, sf.Servers[1].Active)
}

func TestApplyUpsertsEveryServer(t *testing.T) {
	st := store.NewMemoryStore()
	sf := &SeedFile{Servers: []SeedServer{
		{ServerID: "srv-a", Token: "tok-a", Active: true},
	}}

	require.NoError(t, Apply(context.Background(), st, sf))

	gs, err := st.FindGameServerByToken(context.Background(), "tok-a")
	require.NoError(t, err)
	require.NotNil(t, gs)
	assert.Equal(t, "srv-a", gs.ServerID)
}

func TestApplyIsNilSafe(t *testing.T) {
	require.NoError(t, Apply(context.Background(), store.NewMemoryStore(), nil))
}
