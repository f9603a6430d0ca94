package syncengine

import "fmt"

// Delta limits from §4.2.2 step 4: a single sync is never rejected for
// exceeding these, only flagged for operator review.
const (
	maxCurrencyDelta   = 50000
	maxXPDelta         = 100000
	maxPrestigeDelta   = 1
	maxPermaTokenDelta = 10
	maxTimePlayedDelta = 7200 // seconds
)

// checkDeltas compares the incoming stats against the previously stored row
// and returns whether the sync should be flagged, plus a human-readable
// reason listing every violated limit.
func checkDeltas(prev PrevStats, incoming IncomingStats) (flagged bool, reason string) {
	var reasons []string

	if d := incoming.CurrencyTotal - prev.CurrencyTotal; d > maxCurrencyDelta {
		reasons = append(reasons, fmt.Sprintf("currency gain of %d exceeds limit of %d", d, maxCurrencyDelta))
	}
	if d := incoming.CurrencySpent - prev.CurrencySpent; d > maxCurrencyDelta {
		reasons = append(reasons, fmt.Sprintf("currency spend of %d exceeds limit of %d", d, maxCurrencyDelta))
	}
	if d := incoming.XPTotal - prev.XPTotal; d > maxXPDelta {
		reasons = append(reasons, fmt.Sprintf("xp gain of %d exceeds limit of %d", d, maxXPDelta))
	}
	if d := incoming.Prestige - prev.Prestige; d > maxPrestigeDelta {
		reasons = append(reasons, fmt.Sprintf("prestige increase of %d exceeds limit of %d", d, maxPrestigeDelta))
	}
	if d := incoming.PermaTokens - prev.PermaTokens; d > maxPermaTokenDelta {
		reasons = append(reasons, fmt.Sprintf("permaTokens gain of %d exceeds limit of %d", d, maxPermaTokenDelta))
	}
	if d := incoming.TimePlayed - prev.TimePlayed; d > maxTimePlayedDelta {
		reasons = append(reasons, fmt.Sprintf("timePlayed increase of %d exceeds limit of %d", d, maxTimePlayedDelta))
	}

	if len(reasons) == 0 {
		return false, ""
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return true, out
}

// PrevStats is the subset of a previously stored PlayerStats row the delta
// check reads.
type PrevStats struct {
	CurrencyTotal int64
	CurrencySpent int64
	XPTotal       int64
	Prestige      int
	PermaTokens   int64
	TimePlayed    int64
}

// IncomingStats is the same subset read off an incoming document.
type IncomingStats struct {
	CurrencyTotal int64
	CurrencySpent int64
	XPTotal       int64
	Prestige      int
	PermaTokens   int64
	TimePlayed    int64
}
