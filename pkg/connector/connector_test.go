package connector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/audit"
	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncengine"
)

// fakeConn feeds a fixed sequence of inbound messages and records every
// outbound write, standing in for *websocket.Conn in dispatch tests.
type fakeConn struct {
	mu       sync.Mutex
	inbound  [][]byte
	idx      int
	outbound [][]byte
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.inbound) {
		return 0, nil, io.EOF
	}
	msg := f.inbound[f.idx]
	f.idx++
	return 1, msg, nil
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.outbound = append(f.outbound, cp)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) replies(t *testing.T) []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.outbound))
	for i, raw := range f.outbound {
		require.NoError(t, json.Unmarshal(raw, &out[i]))
	}
	return out
}

func envelope(t *testing.T, typ MessageType, id string, payload interface{}) Envelope {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Envelope{ID: id, Type: typ, Payload: raw}
}

func TestSessionDispatchesConnectAndSync(t *testing.T) {
	st := store.NewMemoryStore()
	engine := syncengine.New(st, audit.NewMemorySink(), syncengine.DefaultConfig())
	session := NewSession(&fakeConn{}, "srv-a", engine, nil)
	ctx := context.Background()

	connectReply := session.dispatch(ctx, envelope(t, MsgConnect, "1", ConnectPayload{SteamID: "76561198000000001"}))
	assert.Equal(t, MsgAck, connectReply.Type)

	syncReply := session.dispatch(ctx, envelope(t, MsgSync, "2", SyncPayload{Document: &model.Document{
		V: model.DocumentVersion, SteamID: "76561198000000001", SyncSeq: 1,
	}}))
	require.Equal(t, MsgAck, syncReply.Type)

	var ack AckPayload
	require.NoError(t, json.Unmarshal(syncReply.Payload, &ack))
	assert.Equal(t, int64(1), ack.SyncSeq)
}

func TestSessionReturnsErrorEnvelopeOnUnknownPlayer(t *testing.T) {
	st := store.NewMemoryStore()
	engine := syncengine.New(st, audit.NewMemorySink(), syncengine.DefaultConfig())
	session := NewSession(&fakeConn{}, "srv-a", engine, nil)

	reply := session.dispatch(context.Background(), envelope(t, MsgSync, "1", SyncPayload{Document: &model.Document{
		V: model.DocumentVersion, SteamID: "76561198000000002", SyncSeq: 1,
	}}))
	require.Equal(t, MsgError, reply.Type)

	var errPayload ErrorPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &errPayload))
	assert.Equal(t, "player_not_found", errPayload.Code)
}

func TestSessionReadLoopDrivesRepliesThroughSendChannel(t *testing.T) {
	st := store.NewMemoryStore()
	engine := syncengine.New(st, audit.NewMemorySink(), syncengine.DefaultConfig())

	conn := &fakeConn{inbound: [][]byte{
		func() []byte {
			b, err := json.Marshal(envelope(t, MsgConnect, "1", ConnectPayload{SteamID: "76561198000000003"}))
			require.NoError(t, err)
			return b
		}(),
	}}

	session := NewSession(conn, "srv-a", engine, nil)
	session.Run(context.Background())

	replies := conn.replies(t)
	require.Len(t, replies, 1)
	assert.Equal(t, MsgAck, replies[0].Type)
}

func TestClassifyErrorFallsBackToInternalError(t *testing.T) {
	code, _, _ := classifyError(errors.New("boom"))
	assert.Equal(t, "internal_error", code)
}
