package connector

import (
	"errors"

	"goldbox-rpg/pkg/syncerr"
)

// errorEnvelope converts a SyncEngine error into the closed set of wire
// codes from §7. Unrecognized or transient errors map to "internal_error"
// so the game server can retry without leaking implementation detail.
func errorEnvelope(id string, err error) Envelope {
	code, message, waitMs := classifyError(err)
	return encode(id, MsgError, ErrorPayload{Code: code, Message: message, WaitMs: waitMs})
}

func classifyError(err error) (code, message string, waitMs int64) {
	var validationErr *syncerr.ValidationFailedError
	if errors.As(err, &validationErr) {
		return "validation_failed", validationErr.Error(), 0
	}

	var notFoundErr *syncerr.PlayerNotFoundError
	if errors.As(err, &notFoundErr) {
		return "player_not_found", notFoundErr.Error(), 0
	}

	var notOwnerErr *syncerr.NotSessionOwnerError
	if errors.As(err, &notOwnerErr) {
		return "not_session_owner", notOwnerErr.Error(), 0
	}

	var seqErr *syncerr.InvalidSyncSeqError
	if errors.As(err, &seqErr) {
		return "invalid_sync_seq", seqErr.Error(), 0
	}

	var activeErr *syncerr.ActiveElsewhereError
	if errors.As(err, &activeErr) {
		return "active_elsewhere", activeErr.Error(), activeErr.WaitMs
	}

	var staleErr *syncerr.StaleDataError
	if errors.As(err, &staleErr) {
		return "stale_data", staleErr.Error(), 0
	}

	var authErr *syncerr.UnauthenticatedError
	if errors.As(err, &authErr) {
		return "unauthenticated", authErr.Error(), 0
	}

	return "internal_error", "internal error", 0
}
