package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
)

// seedAuditEntries inserts one old unflagged entry (expected to be
// compacted), one old flagged entry (exempt), and one recent unflagged
// entry (too new to compact).
func seedAuditEntries(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.BeginTx(ctx)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	require.NoError(t, tx.InsertAuditEntry(ctx, model.AuditEntry{
		ServerID: "srv-a", PlayerSteamID: "76561198000000001",
		Kind: model.AuditPeriodic, CreatedAt: old,
	}))
	require.NoError(t, tx.InsertAuditEntry(ctx, model.AuditEntry{
		ServerID: "srv-a", PlayerSteamID: "76561198000000002",
		Kind: model.AuditPeriodic, Flagged: true, FlagReason: "delta_exceeded", CreatedAt: old,
	}))
	require.NoError(t, tx.InsertAuditEntry(ctx, model.AuditEntry{
		ServerID: "srv-a", PlayerSteamID: "76561198000000003",
		Kind: model.AuditPeriodic, CreatedAt: recent,
	}))
	require.NoError(t, tx.Commit(ctx))
}

type fakeRegistry struct {
	connected []string
	swept     []string
}

func (f *fakeRegistry) ConnectedServerIDs() []string { return f.connected }

func (f *fakeRegistry) SweepServer(ctx context.Context, serverID string) (int, error) {
	f.swept = append(f.swept, serverID)
	return 1, nil
}

func TestRunLivenessSweepSkipsConnectedServers(t *testing.T) {
	reg := &fakeRegistry{connected: []string{"srv-a"}}
	sw := New(reg, store.NewMemoryStore(), []string{"srv-a", "srv-b"}, time.Second, 0)

	sw.runLivenessSweep(context.Background())

	assert.Equal(t, []string{"srv-b"}, reg.swept)
}

func TestRunLivenessSweepHandlesAllConnected(t *testing.T) {
	reg := &fakeRegistry{connected: []string{"srv-a", "srv-b"}}
	sw := New(reg, store.NewMemoryStore(), []string{"srv-a", "srv-b"}, time.Second, 0)

	sw.runLivenessSweep(context.Background())

	assert.Empty(t, reg.swept)
}

func TestRunAuditCompactionDeletesExpiredUnflaggedEntries(t *testing.T) {
	st := store.NewMemoryStore()
	seedAuditEntries(t, st)

	sw := New(&fakeRegistry{}, st, nil, time.Second, time.Hour)
	sw.runAuditCompaction(context.Background())

	remaining := st.AuditEntries()
	require.Len(t, remaining, 2)
}

func TestEverySpecFormatsDuration(t *testing.T) {
	assert.Equal(t, "@every 5m0s", everySpec(5*time.Minute))
}
