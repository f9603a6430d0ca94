package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/audit"
	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncerr"
)

func newTestEngine() (*Engine, *store.MemoryStore, *audit.MemorySink) {
	st := store.NewMemoryStore()
	sink := audit.NewMemorySink()
	e := New(st, sink, DefaultConfig())
	return e, st, sink
}

func baseDoc(steamID string, seq int64) *model.Document {
	return &model.Document{
		V:       model.DocumentVersion,
		SteamID: steamID,
		SyncSeq: seq,
		Stats: model.Stats{
			Currency: 100, CurrencyTotal: 100, XP: 10, XPTotal: 10, Prestige: 0,
		},
	}
}

func TestConnectCreatesPlayerAndLocksSession(t *testing.T) {
	e, _, sink := newTestEngine()
	ctx := context.Background()

	doc, err := e.Connect(ctx, Server{ServerID: "srv-a"}, "76561198000000001", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.SyncSeq)
	assert.Nil(t, doc.Tracking)

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditConnect, entries[0].Kind)
	assert.Nil(t, entries[0].SeqBefore)
}

func TestConnectActiveElsewhereWithinTimeout(t *testing.T) {
	now := time.Now()
	e, _, _ := newTestEngine()
	e.WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := e.Connect(ctx, Server{ServerID: "srv-a"}, "76561198000000002", nil, nil)
	require.NoError(t, err)

	_, err = e.Connect(ctx, Server{ServerID: "srv-b"}, "76561198000000002", nil, nil)
	require.Error(t, err)
	var ae *syncerr.ActiveElsewhereError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "srv-a", ae.ActiveServer)
}

func TestConnectTakesOverAfterSessionExpires(t *testing.T) {
	cur := time.Now()
	e, _, _ := newTestEngine()
	e.WithClock(func() time.Time { return cur })
	ctx := context.Background()

	_, err := e.Connect(ctx, Server{ServerID: "srv-a"}, "76561198000000003", nil, nil)
	require.NoError(t, err)

	cur = cur.Add(31 * time.Second)
	_, err = e.Connect(ctx, Server{ServerID: "srv-b"}, "76561198000000003", nil, nil)
	require.NoError(t, err)
}

func TestPeriodicSyncRejectsNonOwner(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.Connect(ctx, Server{ServerID: "srv-a"}, "76561198000000004", nil, nil)
	require.NoError(t, err)

	_, _, err = e.PeriodicSync(ctx, Server{ServerID: "srv-b"}, baseDoc("76561198000000004", 1))
	require.Error(t, err)
	var nso *syncerr.NotSessionOwnerError
	require.ErrorAs(t, err, &nso)
}

func TestPeriodicSyncRejectsSeqOutsideTolerance(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000005", nil, nil)
	require.NoError(t, err)

	_, _, err = e.PeriodicSync(ctx, server, baseDoc("76561198000000005", 11))
	require.Error(t, err)
	var seqErr *syncerr.InvalidSyncSeqError
	require.ErrorAs(t, err, &seqErr)

	seq, flagged, err := e.PeriodicSync(ctx, server, baseDoc("76561198000000005", 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), seq)
	assert.False(t, flagged)
}

func TestPeriodicSyncFlagsCurrencyDeltaOverLimit(t *testing.T) {
	e, _, sink := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000006", nil, nil)
	require.NoError(t, err)

	doc := baseDoc("76561198000000006", 1)
	doc.Stats.CurrencyTotal = 50001
	_, flagged, err := e.PeriodicSync(ctx, server, doc)
	require.NoError(t, err)
	assert.True(t, flagged)

	entries := sink.Entries()
	require.Len(t, entries, 2) // connect + sync
	assert.True(t, entries[1].Flagged)
	assert.Contains(t, entries[1].FlagReason, "currency gain")
}

func TestPeriodicSyncDoesNotFlagAtExactLimit(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000007", nil, nil)
	require.NoError(t, err)

	doc := baseDoc("76561198000000007", 1)
	doc.Stats.CurrencyTotal = 50000
	_, flagged, err := e.PeriodicSync(ctx, server, doc)
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestPeriodicSyncAppliesReplaceAndCounterSemantics(t *testing.T) {
	e, st, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000008", nil, nil)
	require.NoError(t, err)

	doc := baseDoc("76561198000000008", 1)
	doc.Loadout = []model.Loadout{{Slot: 0, Item: "rifle"}}
	doc.Tracking = &model.Tracking{Kills: map[string]int64{"victim": 3}}
	_, _, err = e.PeriodicSync(ctx, server, doc)
	require.NoError(t, err)

	tx, err := st.BeginTx(ctx)
	require.NoError(t, err)
	full, err := tx.FindPlayerFull(ctx, "76561198000000008")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, full.Loadout, 1)
	assert.Equal(t, "rifle", full.Loadout[0].Item)
	require.Len(t, full.Kills, 1)
	assert.Equal(t, int64(3), full.Kills[0].Count)
}

func TestDisconnectReleasesSessionLock(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000009", nil, nil)
	require.NoError(t, err)

	_, _, err = e.Disconnect(ctx, server, baseDoc("76561198000000009", 1))
	require.NoError(t, err)

	// A different server may now connect without contest.
	_, err = e.Connect(ctx, Server{ServerID: "srv-b"}, "76561198000000009", nil, nil)
	require.NoError(t, err)
}

func TestCrashRecoverySkipsStaleData(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000010", nil, nil)
	require.NoError(t, err)
	_, _, err = e.PeriodicSync(ctx, server, baseDoc("76561198000000010", 5))
	require.NoError(t, err)

	result, err := e.CrashRecovery(ctx, server, baseDoc("76561198000000010", 2))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "stale_data", result.SkipReason)
}

func TestCrashRecoveryFlagsWideSequenceGap(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000011", nil, nil)
	require.NoError(t, err)

	result, err := e.CrashRecovery(ctx, server, baseDoc("76561198000000011", 150))
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.True(t, result.Flagged)
	assert.Contains(t, result.FlagReason, "recovery tolerance")
}

func TestCrashRecoveryReleasesSessionLock(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000012", nil, nil)
	require.NoError(t, err)

	_, err = e.CrashRecovery(ctx, server, baseDoc("76561198000000012", 1))
	require.NoError(t, err)

	_, err = e.Connect(ctx, Server{ServerID: "srv-b"}, "76561198000000012", nil, nil)
	require.NoError(t, err)
}

func TestBatchCrashRecoveryIsolatesFailures(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	_, err := e.Connect(ctx, server, "76561198000000013", nil, nil)
	require.NoError(t, err)

	docs := []*model.Document{
		baseDoc("76561198000000013", 1),      // valid
		baseDoc("76561198999999999", 1),       // unknown player -> fails
	}
	result := e.BatchCrashRecovery(ctx, server, docs)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
}

func TestBatchCrashRecoveryCapsAtMaxBatchSize(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	server := Server{ServerID: "srv-a"}

	docs := make([]*model.Document, maxBatchSize+10)
	for i := range docs {
		docs[i] = baseDoc("76561198000000013", 1)
	}
	result := e.BatchCrashRecovery(ctx, server, docs)
	assert.Equal(t, maxBatchSize, result.Total)
}
