package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/model"
)

func TestFindOrCreatePlayer(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	player, created, err := tx.FindOrCreatePlayer(ctx, "76561198000000001")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), player.SyncSeq)
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	again, created, err := tx.FindOrCreatePlayer(ctx, "76561198000000001")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, player.PlayerID, again.PlayerID)
	require.NoError(t, tx.Commit(ctx))
}

func TestReplaceLoadoutSemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	player, _, err := tx.FindOrCreatePlayer(ctx, "76561198000000002")
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceLoadout(ctx, player.PlayerID, []model.LoadoutSlot{
		{Slot: 0, Item: "rifle"}, {Slot: 1, Item: "pistol"},
	}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceLoadout(ctx, player.PlayerID, []model.LoadoutSlot{
		{Slot: 0, Item: "shotgun"},
	}))
	full, err := tx.FindPlayerFull(ctx, "76561198000000002")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, full.Loadout, 1)
	assert.Equal(t, "shotgun", full.Loadout[0].Item)
}

func TestUpsertPermanentUnlocksKeepsOriginalTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	player, _, _ := tx.FindOrCreatePlayer(ctx, "76561198000000003")
	first := time.Now().Add(-time.Hour)
	require.NoError(t, tx.UpsertPermanentUnlocks(ctx, player.PlayerID, []string{"ak47"}, first))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.BeginTx(ctx)
	require.NoError(t, tx.UpsertPermanentUnlocks(ctx, player.PlayerID, []string{"ak47"}, time.Now()))
	full, err := tx.FindPlayerFull(ctx, "76561198000000003")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, full.PermanentUnlock, 1)
	assert.WithinDuration(t, first, full.PermanentUnlock[0].UnlockedAt, time.Millisecond)
}

func TestUpsertCountersStoresNewestAbsoluteValue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	player, _, _ := tx.FindOrCreatePlayer(ctx, "76561198000000004")
	require.NoError(t, tx.UpsertCounters(ctx, TableKills, player.PlayerID, map[string]int64{"76561198000000099": 3}))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.BeginTx(ctx)
	require.NoError(t, tx.UpsertCounters(ctx, TableKills, player.PlayerID, map[string]int64{"76561198000000099": 5}))
	full, err := tx.FindPlayerFull(ctx, "76561198000000004")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, full.Kills, 1)
	assert.Equal(t, int64(5), full.Kills[0].Count)
}

func TestSweepServerClearsSessionLock(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	serverA := "serverA"
	now := time.Now()
	tx, _ := s.BeginTx(ctx)
	p1, _, _ := tx.FindOrCreatePlayer(ctx, "76561198000000005")
	p2, _, _ := tx.FindOrCreatePlayer(ctx, "76561198000000006")
	require.NoError(t, tx.SetSessionLock(ctx, p1.PlayerID, &serverA, &now))
	require.NoError(t, tx.SetSessionLock(ctx, p2.PlayerID, &serverA, &now))
	require.NoError(t, tx.Commit(ctx))

	cleared, err := s.SweepServer(ctx, serverA)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
}
