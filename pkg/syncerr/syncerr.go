// Package syncerr defines the closed set of tagged outcomes the SyncEngine
// returns to its callers (§7). The engine never panics or returns a bare
// error for an expected condition; it returns one of these types so the
// Connector and HTTP surface can type-switch into the matching wire
// response instead of string-matching an error message.
package syncerr

import (
	"errors"
	"fmt"
	"time"
)

// ValidationFailedError means the document violated the v2 shape rules of
// §6.2. No state change occurs.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// PlayerNotFoundError means the steamId referenced by a sequence or
// ownership check does not have a Player row.
type PlayerNotFoundError struct {
	SteamID string
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("player not found: %s", e.SteamID)
}

// NotSessionOwnerError means the calling server does not hold the session
// lock for this player.
type NotSessionOwnerError struct {
	ActiveServer string
}

func (e *NotSessionOwnerError) Error() string {
	return fmt.Sprintf("not session owner, active server is %s", e.ActiveServer)
}

// InvalidSyncSeqError means the document's syncSeq was behind the stored
// value or jumped further than the configured tolerance.
type InvalidSyncSeqError struct {
	ExpectedSeq int64
}

func (e *InvalidSyncSeqError) Error() string {
	return fmt.Sprintf("invalid sync sequence, expected >= %d", e.ExpectedSeq)
}

// ActiveElsewhereError means a Connect lost a contested session lock to
// another, still-active server session (§4.2.1 step 2).
type ActiveElsewhereError struct {
	ActiveServer string
	ActiveSince  time.Time
	WaitMs       int64
}

func (e *ActiveElsewhereError) Error() string {
	return fmt.Sprintf("player active on %s since %s", e.ActiveServer, e.ActiveSince)
}

// StaleDataError means a CrashRecovery document arrived with a syncSeq
// behind the currently stored value; it is a no-op, not a rejection (§4.2.4
// step 2).
type StaleDataError struct {
	StoredSeq int64
	DocSeq    int64
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale_data: doc seq %d behind stored seq %d", e.DocSeq, e.StoredSeq)
}

// UnauthenticatedError means the presented token did not resolve to an
// active GameServer.
type UnauthenticatedError struct {
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	return fmt.Sprintf("unauthenticated: %s", e.Reason)
}

// ErrTransient wraps unexpected faults (DB/network failures, programmer
// errors). The operation is idempotent and the caller may retry.
var ErrTransient = errors.New("transient failure")

// Transient wraps cause as a retryable Transient error.
func Transient(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransient, cause)
}

// IsTransient reports whether err is (or wraps) ErrTransient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
