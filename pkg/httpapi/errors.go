package httpapi

import (
	"errors"
	"net/http"

	"goldbox-rpg/pkg/syncerr"
)

// writeEngineError maps a SyncEngine error to the same closed set of wire
// codes the Connector uses (§7), carried over HTTP status instead of a
// WebSocket error envelope.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *syncerr.ValidationFailedError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Error())
		return
	}

	var notFoundErr *syncerr.PlayerNotFoundError
	if errors.As(err, &notFoundErr) {
		writeError(w, http.StatusNotFound, "player_not_found", notFoundErr.Error())
		return
	}

	var notOwnerErr *syncerr.NotSessionOwnerError
	if errors.As(err, &notOwnerErr) {
		writeError(w, http.StatusConflict, "not_session_owner", notOwnerErr.Error())
		return
	}

	var seqErr *syncerr.InvalidSyncSeqError
	if errors.As(err, &seqErr) {
		writeError(w, http.StatusConflict, "invalid_sync_seq", seqErr.Error())
		return
	}

	var activeErr *syncerr.ActiveElsewhereError
	if errors.As(err, &activeErr) {
		writeError(w, http.StatusConflict, "active_elsewhere", activeErr.Error())
		return
	}

	var staleErr *syncerr.StaleDataError
	if errors.As(err, &staleErr) {
		writeError(w, http.StatusConflict, "stale_data", staleErr.Error())
		return
	}

	var authErr *syncerr.UnauthenticatedError
	if errors.As(err, &authErr) {
		writeError(w, http.StatusUnauthorized, "unauthenticated", authErr.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
