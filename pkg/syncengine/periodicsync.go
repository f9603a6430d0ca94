package syncengine

import (
	"context"
	"time"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncerr"
)

// PeriodicSync implements player:sync (§4.2.2): it validates the document,
// confirms the calling server still owns the session, enforces the normal
// sequence-tolerance window, applies every side-table write, and flags (but
// never rejects) a sync whose deltas exceed the configured limits.
//
// On success it returns the new syncSeq and whether the sync was flagged.
func (e *Engine) PeriodicSync(ctx context.Context, server Server, doc *model.Document) (newSeq int64, flagged bool, err error) {
	start := e.now()

	if errs := e.validator.Validate(doc); len(errs) > 0 {
		return 0, false, &syncerr.ValidationFailedError{Errors: errs}
	}

	var flagReason string
	var auditEntry model.AuditEntry

	txErr := e.withTx(ctx, func(ctx context.Context, tx store.Tx) error {
		full, ferr := tx.FindPlayerFull(ctx, doc.SteamID)
		if ferr != nil {
			return syncerr.Transient(ferr)
		}
		if full == nil {
			return &syncerr.PlayerNotFoundError{SteamID: doc.SteamID}
		}
		player := full.Player

		if !player.OwnedBy(server.ServerID) {
			active := ""
			if player.ActiveServerID != nil {
				active = *player.ActiveServerID
			}
			return &syncerr.NotSessionOwnerError{ActiveServer: active}
		}

		storedSeq := player.SyncSeq
		if doc.SyncSeq < storedSeq || doc.SyncSeq-storedSeq > e.cfg.SeqTolerance {
			return &syncerr.InvalidSyncSeqError{ExpectedSeq: storedSeq}
		}

		flagged, flagReason = checkDeltas(
			PrevStats{
				CurrencyTotal: full.Stats.CurrencyTotal,
				CurrencySpent: full.Stats.CurrencySpent,
				XPTotal:       full.Stats.XPTotal,
				Prestige:      full.Stats.Prestige,
				PermaTokens:   full.Stats.PermaTokens,
				TimePlayed:    full.Stats.TimePlayed,
			},
			IncomingStats{
				CurrencyTotal: doc.Stats.CurrencyTotal,
				CurrencySpent: doc.Stats.CurrencySpent,
				XPTotal:       doc.Stats.XPTotal,
				Prestige:      doc.Stats.Prestige,
				PermaTokens:   doc.Stats.PermaTokens,
				TimePlayed:    doc.Stats.TimePlayed,
			},
		)

		now := e.now()
		if err := applyDocument(ctx, tx, player.PlayerID, doc, now); err != nil {
			return syncerr.Transient(err)
		}
		if err := tx.UpdatePlayerMeta(ctx, player.PlayerID, doc.EosID, doc.Name, doc.SyncSeq); err != nil {
			return syncerr.Transient(err)
		}
		newSeq = doc.SyncSeq

		auditEntry = model.AuditEntry{
			ServerID:      server.ServerID,
			PlayerSteamID: doc.SteamID,
			Kind:          model.AuditPeriodic,
			SeqBefore:     &storedSeq,
			SeqAfter:      &newSeq,
			Flagged:       flagged,
			FlagReason:    flagReason,
			DurationMs:    time.Since(start).Milliseconds(),
			CreatedAt:     e.now(),
		}
		return e.recordAudit(ctx, tx, auditEntry)
	})
	if txErr != nil {
		return 0, false, txErr
	}

	e.notifyAudit(ctx, auditEntry)
	return newSeq, flagged, nil
}
