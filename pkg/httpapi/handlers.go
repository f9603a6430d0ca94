package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/syncengine"
	"goldbox-rpg/pkg/validation"
)

// maxBatchDocuments mirrors the WebSocket control plane's batch cap (§6.1,
// §6.3): a single HTTP batch call is rejected outright past this size
// rather than silently truncated, since the caller controls the request.
const maxBatchDocuments = 100

// PlayerSyncRequest is the POST /api/sync/player body: an offline
// equivalent of a single player:sync frame for tooling that cannot hold a
// WebSocket connection open.
type PlayerSyncRequest struct {
	ServerID string          `json:"serverId"`
	Document *model.Document `json:"document"`
}

// PlayerSyncResponse is the POST /api/sync/player reply.
type PlayerSyncResponse struct {
	SyncSeq int64 `json:"syncSeq"`
	Flagged bool  `json:"flagged"`
}

func (s *Server) handlePlayerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req PlayerSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if req.Document == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "document is required")
		return
	}

	ctx, cancel := withTimeout(r, requestTimeout)
	defer cancel()

	seq, flagged, err := s.engine.PeriodicSync(ctx, syncengine.Server{ServerID: req.ServerID}, req.Document)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlayerSyncResponse{SyncSeq: seq, Flagged: flagged})
}

// BatchRequest is the POST /api/sync/batch body (§6.3).
type BatchRequest struct {
	ServerID  string             `json:"serverId"`
	Documents []*model.Document  `json:"documents"`
}

// BatchResponse mirrors the WebSocket batch ack shape (§6.1).
type BatchResponse struct {
	Total      int                    `json:"total"`
	Successful int                    `json:"successful"`
	Failed     int                    `json:"failed"`
	Results    []BatchResultEntry     `json:"results"`
}

// BatchResultEntry is one document's outcome within a BatchResponse.
type BatchResultEntry struct {
	SteamID string `json:"steamId"`
	Error   string `json:"error,omitempty"`
	SyncSeq int64  `json:"syncSeq,omitempty"`
	Flagged bool   `json:"flagged,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if len(req.Documents) > maxBatchDocuments {
		writeError(w, http.StatusBadRequest, "batch_too_large", "batch exceeds 100 documents")
		return
	}

	ctx, cancel := withTimeout(r, requestTimeout)
	defer cancel()

	result := s.engine.BatchCrashRecovery(ctx, syncengine.Server{ServerID: req.ServerID}, req.Documents)
	resp := BatchResponse{Total: result.Total, Successful: result.Successful, Failed: result.Failed}
	for _, o := range result.Outcomes {
		entry := BatchResultEntry{
			SteamID: o.SteamID, SyncSeq: o.Result.SyncSeq,
			Flagged: o.Result.Flagged, Skipped: o.Result.Skipped,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		resp.Results = append(resp.Results, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the GET /api/sync/status/:steamId reply: the session
// lock state without the full document (§6.3).
type StatusResponse struct {
	SteamID        string  `json:"steamId"`
	SyncSeq        int64   `json:"syncSeq"`
	ActiveServerID *string `json:"activeServerId,omitempty"`
	ActiveSince    *string `json:"activeSince,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	steamID := strings.TrimPrefix(r.URL.Path, "/api/sync/status/")
	if !validation.ValidSteamID(steamID) {
		writeError(w, http.StatusBadRequest, "bad_request", "steamId must be 17 decimal digits")
		return
	}

	ctx, cancel := withTimeout(r, requestTimeout)
	defer cancel()

	full, err := s.readPlayer(ctx, steamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if full == nil {
		writeError(w, http.StatusNotFound, "player_not_found", "player not found")
		return
	}

	resp := StatusResponse{SteamID: full.Player.SteamID, SyncSeq: full.Player.SyncSeq}
	if full.Player.ActiveServerID != nil {
		resp.ActiveServerID = full.Player.ActiveServerID
		since := full.Player.ActiveSince.Format("2006-01-02T15:04:05Z07:00")
		resp.ActiveSince = &since
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlayerExport(w http.ResponseWriter, r *http.Request) {
	steamID := strings.TrimPrefix(r.URL.Path, "/api/sync/player/")
	if !validation.ValidSteamID(steamID) {
		writeError(w, http.StatusBadRequest, "bad_request", "steamId must be 17 decimal digits")
		return
	}

	ctx, cancel := withTimeout(r, requestTimeout)
	defer cancel()

	full, err := s.readPlayer(ctx, steamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if full == nil {
		writeError(w, http.StatusNotFound, "player_not_found", "player not found")
		return
	}
	writeJSON(w, http.StatusOK, full.ToDocument(true))
}

// readPlayer opens a throwaway transaction: Store's Tx interface is the only
// way to reach FindPlayerFull, but this call never writes, so it always
// resolves with Rollback.
func (s *Server) readPlayer(ctx context.Context, steamID string) (*model.PlayerFull, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	return tx.FindPlayerFull(ctx, steamID)
}
