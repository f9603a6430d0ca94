// Package syncengine implements the pure domain logic of the player-state
// sync service: the session lock, sequence monotonicity, delta limits, and
// the four operation kinds (Connect, PeriodicSync, Disconnect,
// CrashRecovery), plus their batch variant (§4.2).
//
// Engine never starts a transaction implicitly on behalf of a caller it
// doesn't control, and it never returns a bare error for an expected
// outcome — see pkg/syncerr for the closed set of tagged results.
package syncengine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/audit"
	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/validation"
)

// Server identifies the game server issuing an operation; resolved by the
// caller (Connector/HTTP surface) via Registry before reaching Engine.
type Server struct {
	ServerID string
}

// Config carries the tunable constants referenced throughout §4.2 and
// §6.4.
type Config struct {
	ActiveServerTimeout time.Duration
	SeqTolerance        int64
	SeqToleranceRecover int64
}

// DefaultConfig returns the spec defaults: 30s session-lock expiry, 10
// normal / 100 recovery sequence tolerance.
func DefaultConfig() Config {
	return Config{
		ActiveServerTimeout: 30 * time.Second,
		SeqTolerance:        10,
		SeqToleranceRecover: 100,
	}
}

// Engine is safe for concurrent use; all mutable state lives in Store.
type Engine struct {
	store     store.Store
	audit     audit.Sink
	validator *validation.DocumentValidator
	cfg       Config
	now       func() time.Time
}

// New constructs an Engine. now defaults to time.Now; tests may override it
// via WithClock to make session-lock expiry deterministic.
func New(st store.Store, sink audit.Sink, cfg Config) *Engine {
	return &Engine{
		store:     st,
		audit:     sink,
		validator: validation.NewDocumentValidator(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the engine's time source, for tests exercising the
// ACTIVE_SERVER_TIMEOUT and sequence-tolerance boundaries deterministically.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// withTx runs fn inside a Store transaction, committing on success and
// rolling back on any error or panic.
func (e *Engine) withTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) (err error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logrus.WithFields(logrus.Fields{
					"function": "withTx",
					"error":    rbErr,
				}).Error("rollback failed after operation error")
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(ctx, tx)
}

// recordAudit writes the transactional audit row. Callers stamp
// entry.CreatedAt before calling so the same value can be reused for the
// post-commit AuditSink notification.
func (e *Engine) recordAudit(ctx context.Context, tx store.Tx, entry model.AuditEntry) error {
	return tx.InsertAuditEntry(ctx, entry)
}

// notifyAudit fires the AuditSink after a successful commit. Must be called
// outside the transaction: the sink is an observer, not a participant.
func (e *Engine) notifyAudit(ctx context.Context, entry model.AuditEntry) {
	if e.audit != nil {
		e.audit.Record(ctx, entry)
	}
}

func strPtr(s string) *string { return &s }
