// Package connector implements the bidirectional WebSocket control plane
// between the sync service and individual game servers (§6.1). A Session
// wraps one live connection, whichever side dialed it, and translates wire
// envelopes into SyncEngine calls.
package connector

import (
	"encoding/json"

	"goldbox-rpg/pkg/model"
)

// MessageType enumerates the envelope kinds exchanged over the control
// plane (§6.1).
type MessageType string

const (
	MsgConnect            MessageType = "player:connect"
	MsgSync               MessageType = "player:sync"
	MsgDisconnect         MessageType = "player:disconnect"
	MsgCrashRecovery      MessageType = "player:crash-recovery"
	MsgBatchCrashRecovery MessageType = "player:batch-crash-recovery"
	MsgAck                MessageType = "ack"
	MsgError              MessageType = "error"
)

// Envelope is the wire frame shared by every message direction. ID lets the
// game server correlate an ack/error reply with the request that caused it.
type Envelope struct {
	ID      string          `json:"id"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectPayload is the player:connect request body.
type ConnectPayload struct {
	SteamID string  `json:"steamId"`
	EosID   *string `json:"eosId,omitempty"`
	Name    *string `json:"name,omitempty"`
}

// SyncPayload wraps a v2 document for player:sync, player:disconnect, and
// player:crash-recovery; all three carry the same shape (§6.2).
type SyncPayload struct {
	Document *model.Document `json:"document"`
}

// BatchCrashRecoveryPayload carries up to 100 documents (§6.1, §6.3).
type BatchCrashRecoveryPayload struct {
	Documents []*model.Document `json:"documents"`
}

// AckPayload is the success reply to any request envelope.
type AckPayload struct {
	Document *model.Document `json:"document,omitempty"`
	SyncSeq  int64           `json:"syncSeq,omitempty"`
	Flagged  bool            `json:"flagged,omitempty"`
	Skipped  bool            `json:"skipped,omitempty"`
	SkipReason string        `json:"skipReason,omitempty"`
}

// BatchAckPayload is the reply to player:batch-crash-recovery.
type BatchAckPayload struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []BatchOutcomeWire `json:"results"`
}

// BatchOutcomeWire is one entry of a BatchAckPayload.
type BatchOutcomeWire struct {
	SteamID string `json:"steamId"`
	Error   string `json:"error,omitempty"`
	SyncSeq int64  `json:"syncSeq,omitempty"`
	Flagged bool   `json:"flagged,omitempty"`
}

// ErrorPayload is the failure reply to any request envelope, carrying the
// tagged error code from §7 so the game server can branch without string
// matching.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	WaitMs  int64  `json:"waitMs,omitempty"`
}

func encode(id string, typ MessageType, payload interface{}) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return Envelope{ID: id, Type: typ, Payload: raw}
}
