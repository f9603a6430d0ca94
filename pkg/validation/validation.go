// Package validation provides shape validation for v2 player documents
// (§6.2) before they reach the SyncEngine.
//
// This package ensures every incoming document is validated before
// processing to prevent malformed or adversarial documents from reaching
// the Store. It reports violations and does not modify the document.
package validation

import (
	"fmt"
	"regexp"

	"goldbox-rpg/pkg/model"
)

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// ValidSteamID reports whether id matches the 17-digit decimal shape
// required everywhere a bare steamId is accepted outside a full document
// (player:connect, the HTTP status/export lookups).
func ValidSteamID(id string) bool {
	return steamIDPattern.MatchString(id)
}

// DocumentValidator validates v2 player documents against the shape rules
// of §6.2. It holds no state and is safe for concurrent use.
type DocumentValidator struct{}

// NewDocumentValidator constructs a DocumentValidator.
func NewDocumentValidator() *DocumentValidator {
	return &DocumentValidator{}
}

// Validate returns the list of shape violations found in doc, or nil if the
// document is well-formed. An empty, non-nil doc is never passed validation
// checks that assume non-nil fields; callers should treat a non-empty
// return as ValidationFailed (§7).
func (v *DocumentValidator) Validate(doc *model.Document) []string {
	var errs []string

	if doc == nil {
		return []string{"document is nil"}
	}

	if doc.V != model.DocumentVersion {
		errs = append(errs, fmt.Sprintf("unsupported document version %d, expected %d", doc.V, model.DocumentVersion))
	}

	if !steamIDPattern.MatchString(doc.SteamID) {
		errs = append(errs, fmt.Sprintf("steamId must be exactly 17 decimal digits, got %q", doc.SteamID))
	}

	errs = append(errs, validateStats(doc.Stats)...)
	errs = append(errs, validateLoadout(doc.Loadout)...)
	if doc.Tracking != nil {
		errs = append(errs, validateTracking(*doc.Tracking)...)
	}

	if doc.SyncSeq < 0 {
		errs = append(errs, "syncSeq must be non-negative")
	}

	return errs
}

func validateStats(s model.Stats) []string {
	var errs []string
	nonNegative := map[string]int64{
		"stats.currency":       s.Currency,
		"stats.currencyTotal":  s.CurrencyTotal,
		"stats.currencySpent":  s.CurrencySpent,
		"stats.xp":             s.XP,
		"stats.xpTotal":        s.XPTotal,
		"stats.permaTokens":    s.PermaTokens,
		"stats.dailyClaims":    s.DailyClaims,
		"stats.gamesPlayed":    s.GamesPlayed,
		"stats.timePlayed":     s.TimePlayed,
	}
	for field, val := range nonNegative {
		if val < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %d", field, val))
		}
	}

	if s.Prestige < 0 || s.Prestige > 100 {
		errs = append(errs, fmt.Sprintf("stats.prestige must be in [0,100], got %d", s.Prestige))
	}

	return errs
}

func validateLoadout(slots []model.Loadout) []string {
	var errs []string
	for i, slot := range slots {
		if slot.Item == "" {
			errs = append(errs, fmt.Sprintf("loadout[%d].item must be a non-empty string", i))
		}
	}
	return errs
}

func validateTracking(t model.Tracking) []string {
	var errs []string
	for name, m := range map[string]map[string]int64{
		"tracking.kills":        t.Kills,
		"tracking.vehicleKills": t.VehicleKills,
		"tracking.purchases":    t.Purchases,
		"tracking.weaponXp":     t.WeaponXP,
		"tracking.rewards":      t.Rewards,
	} {
		for key, val := range m {
			if val < 0 {
				errs = append(errs, fmt.Sprintf("%s[%s] must be a non-negative integer, got %d", name, key, val))
			}
		}
	}
	return errs
}
