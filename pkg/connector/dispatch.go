package connector

import (
	"context"
	"encoding/json"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/syncengine"
)

// dispatch translates one inbound envelope into a SyncEngine call and
// builds the matching ack/error reply (§6.1).
func (s *Session) dispatch(ctx context.Context, env Envelope) Envelope {
	server := syncengine.Server{ServerID: s.serverID}

	switch env.Type {
	case MsgConnect:
		var payload ConnectPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return errorEnvelope(env.ID, err)
		}
		doc, err := s.engine.Connect(ctx, server, payload.SteamID, payload.EosID, payload.Name)
		if err != nil {
			s.recordOutcome("connect", false)
			return errorEnvelope(env.ID, err)
		}
		s.recordOutcome("connect", true)
		return encode(env.ID, MsgAck, AckPayload{Document: doc})

	case MsgSync:
		doc, err := decodeDocument(env.Payload)
		if err != nil {
			return errorEnvelope(env.ID, err)
		}
		seq, flagged, err := s.engine.PeriodicSync(ctx, server, doc)
		if err != nil {
			s.recordOutcome("sync", false)
			return errorEnvelope(env.ID, err)
		}
		s.recordOutcome("sync", true)
		return encode(env.ID, MsgAck, AckPayload{SyncSeq: seq, Flagged: flagged})

	case MsgDisconnect:
		doc, err := decodeDocument(env.Payload)
		if err != nil {
			return errorEnvelope(env.ID, err)
		}
		seq, flagged, err := s.engine.Disconnect(ctx, server, doc)
		if err != nil {
			s.recordOutcome("disconnect", false)
			return errorEnvelope(env.ID, err)
		}
		s.recordOutcome("disconnect", true)
		return encode(env.ID, MsgAck, AckPayload{SyncSeq: seq, Flagged: flagged})

	case MsgCrashRecovery:
		doc, err := decodeDocument(env.Payload)
		if err != nil {
			return errorEnvelope(env.ID, err)
		}
		result, err := s.engine.CrashRecovery(ctx, server, doc)
		if err != nil {
			s.recordOutcome("crash_recovery", false)
			return errorEnvelope(env.ID, err)
		}
		s.recordOutcome("crash_recovery", true)
		return encode(env.ID, MsgAck, AckPayload{
			SyncSeq: result.SyncSeq, Flagged: result.Flagged,
			Skipped: result.Skipped, SkipReason: result.SkipReason,
		})

	case MsgBatchCrashRecovery:
		var payload BatchCrashRecoveryPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return errorEnvelope(env.ID, err)
		}
		batch := s.engine.BatchCrashRecovery(ctx, server, payload.Documents)
		return encode(env.ID, MsgAck, toBatchAck(batch))

	default:
		return encode(env.ID, MsgError, ErrorPayload{
			Code:    "unknown_message_type",
			Message: "unrecognized message type: " + string(env.Type),
		})
	}
}

func decodeDocument(raw json.RawMessage) (*model.Document, error) {
	var payload SyncPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload.Document, nil
}

func toBatchAck(b syncengine.BatchResult) BatchAckPayload {
	results := make([]BatchOutcomeWire, len(b.Outcomes))
	for i, o := range b.Outcomes {
		w := BatchOutcomeWire{SteamID: o.SteamID, SyncSeq: o.Result.SyncSeq, Flagged: o.Result.Flagged}
		if o.Err != nil {
			w.Error = o.Err.Error()
		}
		results[i] = w
	}
	return BatchAckPayload{Total: b.Total, Successful: b.Successful, Failed: b.Failed, Results: results}
}

func (s *Session) recordOutcome(eventType string, ok bool) {
	if s.metrics == nil {
		return
	}
	outcome := eventType + "_ok"
	if !ok {
		outcome = eventType + "_error"
	}
	s.metrics.RecordConnectorEvent(s.serverID, outcome)
}
