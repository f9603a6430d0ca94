package syncengine

import (
	"context"
	"time"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncerr"
)

// Connect implements player:connect (§4.2.1): it resolves or creates the
// Player row, contests the session lock against any other server's active
// session, and returns the player's current document with tracking
// omitted.
func (e *Engine) Connect(ctx context.Context, server Server, steamID string, eosID, name *string) (*model.Document, error) {
	start := e.now()

	var result *model.Document
	var auditEntry model.AuditEntry

	err := e.withTx(ctx, func(ctx context.Context, tx store.Tx) error {
		player, _, err := tx.FindOrCreatePlayer(ctx, steamID)
		if err != nil {
			return syncerr.Transient(err)
		}

		if player.IsOwned() && !player.OwnedBy(server.ServerID) {
			if !player.SessionExpired(e.now(), e.cfg.ActiveServerTimeout) {
				return &syncerr.ActiveElsewhereError{
					ActiveServer: *player.ActiveServerID,
					ActiveSince:  *player.ActiveSince,
					WaitMs:       e.cfg.ActiveServerTimeout.Milliseconds(),
				}
			}
			// Lock expired: this connect takes over the session.
		}

		now := e.now()
		if err := tx.SetSessionLock(ctx, player.PlayerID, strPtr(server.ServerID), &now); err != nil {
			return syncerr.Transient(err)
		}
		if eosID != nil || name != nil {
			if err := tx.UpdatePlayerMeta(ctx, player.PlayerID, eosID, name, player.SyncSeq); err != nil {
				return syncerr.Transient(err)
			}
		}

		full, err := tx.FindPlayerFull(ctx, steamID)
		if err != nil {
			return syncerr.Transient(err)
		}
		result = full.ToDocument(false)

		seqAfter := full.Player.SyncSeq
		auditEntry = model.AuditEntry{
			ServerID:      server.ServerID,
			PlayerSteamID: steamID,
			Kind:          model.AuditConnect,
			SeqAfter:      &seqAfter,
			DurationMs:    time.Since(start).Milliseconds(),
			CreatedAt:     e.now(),
		}
		return e.recordAudit(ctx, tx, auditEntry)
	})
	if err != nil {
		return nil, err
	}

	e.notifyAudit(ctx, auditEntry)
	return result, nil
}
