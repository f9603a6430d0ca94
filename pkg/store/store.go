// Package store decomposes and recomposes the v2 player document into and
// from the relational model inside one transaction, hiding SQL details
// behind a narrow interface of typed upsert/fetch primitives (§4.3).
//
// The Store never starts a transaction by itself; it only joins one
// supplied by the caller (SyncEngine). This mirrors the teacher's
// persistence layer convention of taking an explicit dependency instead of
// reaching for a process-global handle (see SPEC_FULL.md's Design Notes).
package store

import (
	"context"
	"time"

	"goldbox-rpg/pkg/model"
)

// CounterTable names one of the five open-keyed tracking side tables so a
// single upsert method can serve all of them (§3, §4.2.2 step 5).
type CounterTable string

const (
	TableKills        CounterTable = "kills"
	TableVehicleKills CounterTable = "vehicle_kills"
	TablePurchases    CounterTable = "purchases"
	TableWeaponXP     CounterTable = "weapon_xp"
	TableRewards      CounterTable = "rewards"
)

// Store is the transaction-opening boundary. SyncEngine calls BeginTx once
// per operation and threads the returned Tx through every Store call for
// that operation, then commits or rolls back.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindGameServerByToken and SweepServer run outside an explicit
	// SyncEngine transaction: the former is a single read, the latter a
	// single atomic UPDATE statement (§4.1).
	FindGameServerByToken(ctx context.Context, token string) (*model.GameServer, error)
	SweepServer(ctx context.Context, serverID string) (cleared int, err error)

	// CompactAuditLog deletes non-flagged audit entries older than
	// olderThan. Flagged entries are exempt from retention: they stay until
	// an operator reviews them regardless of age (§9 Design Note).
	CompactAuditLog(ctx context.Context, olderThan time.Time) (deleted int, err error)

	// UpsertGameServer creates or updates a GameServer row keyed by
	// ServerID, for administrative/dev-seed tooling outside the normal
	// connector token-resolution path.
	UpsertGameServer(ctx context.Context, gs model.GameServer) error

	Close()
}

// Tx is the set of typed upsert/fetch primitives available inside one
// SyncEngine operation's transaction boundary (§4.3).
type Tx interface {
	// FindOrCreatePlayer returns the Player row for steamID, creating one
	// with syncSeq=0 and a default Stats row if this is the first sighting
	// (§4.2.1 step 1).
	FindOrCreatePlayer(ctx context.Context, steamID string) (player *model.Player, created bool, err error)

	// FindPlayerFull reads the Player plus every association in one
	// consistent snapshot (§4.3).
	FindPlayerFull(ctx context.Context, steamID string) (*model.PlayerFull, error)

	// SetSessionLock sets or clears activeServerId/activeSince. Passing a
	// nil serverID clears the lock (Disconnect, CrashRecovery, sweep).
	SetSessionLock(ctx context.Context, playerID int64, serverID *string, since *time.Time) error

	// UpdatePlayerMeta bumps syncSeq and refreshes the optional eosId/name
	// fields (§4.2.2 step 5).
	UpdatePlayerMeta(ctx context.Context, playerID int64, eosID, name *string, syncSeq int64) error

	UpsertStats(ctx context.Context, stats model.PlayerStats) error
	UpsertSkins(ctx context.Context, skins model.PlayerSkins) error
	UpsertSupporter(ctx context.Context, sup model.SupporterStatus) error

	// ReplaceLoadout and ReplacePerks implement the replace semantics of
	// §4.2.2 step 5: delete every existing row for the player, then insert
	// the new set in order.
	ReplaceLoadout(ctx context.Context, playerID int64, slots []model.LoadoutSlot) error
	ReplacePerks(ctx context.Context, playerID int64, perkNames []string) error

	// UpsertPermanentUnlocks is additive: existing rows keep their original
	// unlock timestamp (§4.2.2 step 5).
	UpsertPermanentUnlocks(ctx context.Context, playerID int64, weaponNames []string, unlockedAt time.Time) error

	// UpsertCounters stores the newest absolute counter value for each key
	// in the named tracking table (§4.2.2 step 5, GLOSSARY).
	UpsertCounters(ctx context.Context, table CounterTable, playerID int64, values map[string]int64) error

	InsertAuditEntry(ctx context.Context, entry model.AuditEntry) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
