package syncengine

import (
	"context"
	"strconv"
	"time"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncerr"
)

// CrashRecoveryResult reports what CrashRecovery actually did. A stale
// document is not an error (§4.2.4 step 2): the engine skips the write and
// says so rather than asking the caller to retry.
type CrashRecoveryResult struct {
	Skipped    bool
	SkipReason string
	SyncSeq    int64
	Flagged    bool
	FlagReason string
}

// CrashRecovery implements player:crash-recovery (§4.2.4). Unlike
// PeriodicSync it tolerates a wider sequence gap before flagging instead of
// rejecting, never checks session ownership (the owning server is, by
// definition, the one that crashed), and releases the session lock so the
// player can reconnect anywhere.
func (e *Engine) CrashRecovery(ctx context.Context, server Server, doc *model.Document) (CrashRecoveryResult, error) {
	start := e.now()

	if errs := e.validator.Validate(doc); len(errs) > 0 {
		return CrashRecoveryResult{}, &syncerr.ValidationFailedError{Errors: errs}
	}

	var result CrashRecoveryResult
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
		storedSeq := player.SyncSeq

		if doc.SyncSeq < storedSeq {
			result = CrashRecoveryResult{
				Skipped:    true,
				SkipReason: "stale_data",
				SyncSeq:    storedSeq,
			}
			auditEntry = model.AuditEntry{
				ServerID:      server.ServerID,
				PlayerSteamID: doc.SteamID,
				Kind:          model.AuditCrashRecovery,
				SeqBefore:     &storedSeq,
				SeqAfter:      &storedSeq,
				Flagged:       true,
				FlagReason:    (&syncerr.StaleDataError{StoredSeq: storedSeq, DocSeq: doc.SyncSeq}).Error(),
				DurationMs:    time.Since(start).Milliseconds(),
				CreatedAt:     e.now(),
			}
			return e.recordAudit(ctx, tx, auditEntry)
		}

		flagged, flagReason := checkDeltas(
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
		if gap := doc.SyncSeq - storedSeq; gap > e.cfg.SeqToleranceRecover {
			flagged = true
			reason := "sync sequence gap of " + strconv.FormatInt(gap, 10) + " exceeds recovery tolerance"
			if flagReason != "" {
				flagReason += "; " + reason
			} else {
				flagReason = reason
			}
		}

		now := e.now()
		if err := applyDocument(ctx, tx, player.PlayerID, doc, now); err != nil {
			return syncerr.Transient(err)
		}
		if err := tx.UpdatePlayerMeta(ctx, player.PlayerID, doc.EosID, doc.Name, doc.SyncSeq); err != nil {
			return syncerr.Transient(err)
		}
		if err := tx.SetSessionLock(ctx, player.PlayerID, nil, nil); err != nil {
			return syncerr.Transient(err)
		}

		result = CrashRecoveryResult{
			SyncSeq:    doc.SyncSeq,
			Flagged:    flagged,
			FlagReason: flagReason,
		}
		auditEntry = model.AuditEntry{
			ServerID:      server.ServerID,
			PlayerSteamID: doc.SteamID,
			Kind:          model.AuditCrashRecovery,
			SeqBefore:     &storedSeq,
			SeqAfter:      &result.SyncSeq,
			Flagged:       flagged,
			FlagReason:    flagReason,
			DurationMs:    time.Since(start).Milliseconds(),
			CreatedAt:     e.now(),
		}
		return e.recordAudit(ctx, tx, auditEntry)
	})
	if txErr != nil {
		return CrashRecoveryResult{}, txErr
	}

	e.notifyAudit(ctx, auditEntry)
	return result, nil
}
