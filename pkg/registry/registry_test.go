package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/model"
)

type fakeStore struct {
	servers map[string]*model.GameServer
	swept   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{servers: make(map[string]*model.GameServer), swept: make(map[string]int)}
}

func (f *fakeStore) FindGameServerByToken(ctx context.Context, token string) (*model.GameServer, error) {
	for _, s := range f.servers {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SweepServer(ctx context.Context, serverID string) (int, error) {
	f.swept[serverID]++
	return 3, nil
}

type fakeConn struct{ id string }

func (c *fakeConn) ServerID() string { return c.id }
func (c *fakeConn) Close() error     { return nil }

func TestResolveToken(t *testing.T) {
	store := newFakeStore()
	store.servers["serverA"] = &model.GameServer{ServerID: "serverA", Token: "tok-a", Active: true}
	store.servers["serverB"] = &model.GameServer{ServerID: "serverB", Token: "tok-b", Active: false}
	reg := New(store)

	server, outcome, err := reg.ResolveToken(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.Equal(t, TokenOK, outcome)
	assert.Equal(t, "serverA", server.ServerID)

	_, outcome, err = reg.ResolveToken(context.Background(), "tok-b")
	require.NoError(t, err)
	assert.Equal(t, TokenInactive, outcome)

	_, outcome, err = reg.ResolveToken(context.Background(), "tok-missing")
	require.NoError(t, err)
	assert.Equal(t, TokenNotFound, outcome)
}

func TestRegisterUnregister(t *testing.T) {
	reg := New(newFakeStore())
	conn := &fakeConn{id: "serverA"}

	reg.Register(conn)
	got, ok := reg.Connection("serverA")
	require.True(t, ok)
	assert.Equal(t, conn, got)
	assert.Equal(t, []string{"serverA"}, reg.ConnectedServerIDs())

	// a stale unregister from a superseded session is a no-op
	stale := &fakeConn{id: "serverA"}
	reg.Unregister(stale)
	_, ok = reg.Connection("serverA")
	assert.True(t, ok)

	reg.Unregister(conn)
	_, ok = reg.Connection("serverA")
	assert.False(t, ok)
}

func TestSweepServer(t *testing.T) {
	store := newFakeStore()
	reg := New(store)

	cleared, err := reg.SweepServer(context.Background(), "serverA")
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)
	assert.Equal(t, 1, store.swept["serverA"])
}

func TestGenerateToken(t *testing.T) {
	tok1, err := GenerateToken()
	require.NoError(t, err)
	tok2, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, tok1, tok2)
	assert.GreaterOrEqual(t, len(tok1), 40)
}
