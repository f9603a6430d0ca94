package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/model"
)

// PostgresStore is the production Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore, configuring the pool bounds
// from dsn-adjacent config (maxOpen/maxIdle/maxLifetime map onto pgxpool's
// MaxConns/MinConns/MaxConnLifetime).
func NewPostgresStore(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	poolCfg.MaxConns = int32(maxOpenConns)
	poolCfg.MinConns = int32(maxIdleConns)
	poolCfg.MaxConnLifetime = connMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewPostgresStore",
		"maxOpenConns": maxOpenConns,
	}).Info("connected to player-state database")

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// BeginTx opens the transaction boundary SyncEngine threads through one
// operation's Store calls.
func (s *PostgresStore) BeginTx(ctx context.Context) (Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &pgTx{tx: pgxTx}, nil
}

// FindGameServerByToken resolves a connector token to its GameServer row
// (§4.1). Returns (nil, nil) when no row matches.
func (s *PostgresStore) FindGameServerByToken(ctx context.Context, token string) (*model.GameServer, error) {
	var gs model.GameServer
	row := s.pool.QueryRow(ctx, `
		SELECT server_id, token, active, flagged, flag_reason, COALESCE(last_seen, now())
		FROM game_servers WHERE token = $1`, token)
	err := row.Scan(&gs.ServerID, &gs.Token, &gs.Active, &gs.Flagged, &gs.FlagReason, &gs.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying game server by token: %w", err)
	}
	return &gs, nil
}

// SweepServer clears the session lock on every player pinned to serverID in
// a single atomic UPDATE (§4.1).
func (s *PostgresStore) SweepServer(ctx context.Context, serverID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE players SET active_server_id = NULL, active_since = NULL
		WHERE active_server_id = $1`, serverID)
	if err != nil {
		return 0, fmt.Errorf("sweeping server %s: %w", serverID, err)
	}
	return int(tag.RowsAffected()), nil
}

// UpsertGameServer creates or updates a GameServer row by ServerID.
func (s *PostgresStore) UpsertGameServer(ctx context.Context, gs model.GameServer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_servers (server_id, token, active, flagged, flag_reason, last_seen)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (server_id) DO UPDATE SET
			token = EXCLUDED.token, active = EXCLUDED.active,
			flagged = EXCLUDED.flagged, flag_reason = EXCLUDED.flag_reason`,
		gs.ServerID, gs.Token, gs.Active, gs.Flagged, gs.FlagReason)
	if err != nil {
		return fmt.Errorf("upserting game server %s: %w", gs.ServerID, err)
	}
	return nil
}

// CompactAuditLog deletes every non-flagged audit entry created before
// olderThan.
func (s *PostgresStore) CompactAuditLog(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM audit_entries WHERE flagged = false AND created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("compacting audit log: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
