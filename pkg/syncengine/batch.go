package syncengine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"goldbox-rpg/pkg/model"
)

// maxBatchSize mirrors the HTTP surface's batch cap (§6.3 POST
// /api/sync/batch): a single batch recovery call never processes more than
// this many documents regardless of how many the caller submits.
const maxBatchSize = 100

// PlayerRecoveryOutcome is one entry's result within a BatchCrashRecovery
// call.
type PlayerRecoveryOutcome struct {
	SteamID string
	Result  CrashRecoveryResult
	Err     error
}

// BatchResult summarizes a BatchCrashRecovery call.
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
	Outcomes   []PlayerRecoveryOutcome
}

// batchConcurrency bounds how many CrashRecovery calls run at once; each
// runs in its own transaction so one player's failure never blocks or
// cancels another's (§4.2.5).
const batchConcurrency = 8

// BatchCrashRecovery fans docs out across a bounded worker pool, running
// each through CrashRecovery independently. docs beyond maxBatchSize are
// dropped; callers enforcing the HTTP contract should reject an oversized
// batch before calling this.
func (e *Engine) BatchCrashRecovery(ctx context.Context, server Server, docs []*model.Document) BatchResult {
	if len(docs) > maxBatchSize {
		docs = docs[:maxBatchSize]
	}

	outcomes := make([]PlayerRecoveryOutcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			result, err := e.CrashRecovery(gctx, server, doc)
			outcomes[i] = PlayerRecoveryOutcome{SteamID: doc.SteamID, Result: result, Err: err}
			return nil // one player's failure must never cancel the group
		})
	}
	_ = g.Wait()

	out := BatchResult{Total: len(docs), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			out.Failed++
		} else {
			out.Successful++
		}
	}
	return out
}
