// Package registry owns the authoritative mapping from connector token to
// GameServer record, and from serverId to its live connection handle (§4.1).
// It is the single place cross-task state about "who is connected" lives;
// Connector sessions mutate only the maps they privately own and read
// cross-session state through this package.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/model"
)

// TokenOutcome classifies the result of resolving a connector token.
type TokenOutcome int

const (
	// TokenOK means the token resolved to an active GameServer.
	TokenOK TokenOutcome = iota
	// TokenNotFound means no GameServer owns this token.
	TokenNotFound
	// TokenInactive means the GameServer exists but is not active.
	TokenInactive
)

// Store is the subset of the Store interface Registry needs: resolving a
// token to its GameServer row, and atomically clearing the session lock on
// every player pinned to a server (§4.1 sweepServer).
type Store interface {
	FindGameServerByToken(ctx context.Context, token string) (*model.GameServer, error)
	SweepServer(ctx context.Context, serverID string) (cleared int, err error)
}

// Connection is the narrow handle Registry keeps for a live connector
// session, enough to let a cross-task caller (e.g. the sweeper) inspect
// liveness without reaching into Connector internals.
type Connection interface {
	ServerID() string
	Close() error
}

// Registry is safe for concurrent use; the connections map is the only
// mutable state it owns; everything else is read-through to Store.
type Registry struct {
	store Store

	mu          sync.RWMutex
	connections map[string]Connection
}

// New constructs a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{
		store:       store,
		connections: make(map[string]Connection),
	}
}

// ResolveToken looks up the GameServer owning token and classifies the
// result (§4.1).
func (r *Registry) ResolveToken(ctx context.Context, token string) (*model.GameServer, TokenOutcome, error) {
	server, err := r.store.FindGameServerByToken(ctx, token)
	if err != nil {
		return nil, TokenNotFound, fmt.Errorf("resolving token: %w", err)
	}
	if server == nil {
		return nil, TokenNotFound, nil
	}
	if !server.Active {
		return server, TokenInactive, nil
	}
	return server, TokenOK, nil
}

// Register records the live connection handle for serverID, replacing any
// prior handle (a reconnect supersedes the old session).
func (r *Registry) Register(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ServerID()] = conn
}

// Unregister drops the live connection handle for serverID if it still
// matches conn (a late unregister from a superseded session is a no-op).
func (r *Registry) Unregister(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.connections[conn.ServerID()]; ok && current == conn {
		delete(r.connections, conn.ServerID())
	}
}

// Connection returns the live connection handle for serverID, if any.
func (r *Registry) Connection(serverID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[serverID]
	return conn, ok
}

// ConnectedServerIDs returns a snapshot of every serverId with a live
// connection, for the sweeper's periodic liveness check.
func (r *Registry) ConnectedServerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	return ids
}

// SweepServer atomically clears activeServerId/activeSince on every player
// currently pinned to serverID (§4.1, called on game-server disconnect or
// by the sweeper's liveness sweep).
func (r *Registry) SweepServer(ctx context.Context, serverID string) (int, error) {
	cleared, err := r.store.SweepServer(ctx, serverID)
	if err != nil {
		return 0, fmt.Errorf("sweeping server %s: %w", serverID, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "SweepServer",
		"serverID": serverID,
		"cleared":  cleared,
	}).Info("cleared session locks for disconnected server")
	return cleared, nil
}

// GenerateToken returns a cryptographically strong, URL-safe token with at
// least 256 bits of entropy (§4.1).
func GenerateToken() (string, error) {
	buf := make([]byte, 32) // 256 bits
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
