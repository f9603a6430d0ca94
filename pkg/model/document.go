// Package model defines the canonical in-memory shapes shared by the
// SyncEngine, Store, and Connector: the wire-level v2 player document
// (§6.2) and the relational domain entities it decomposes into (§3).
//
// Incoming documents arrive as dynamically shaped JSON. This package is the
// boundary where that JSON is validate-parsed into a single static type;
// no untyped maps propagate past this point except the five tracking
// dictionaries, which are genuinely open-keyed (kill/vehicle-kill/purchase/
// weapon-xp/reward counters named by the game).
package model

import "time"

// DocumentVersion is the only wire format this service accepts. Ingestion
// of the legacy non-versioned format is explicitly out of scope (§1).
const DocumentVersion = 2

// Document is the v2 player document exchanged over the wire (§6.2). It is
// the shape sent by a game server on player:sync, player:disconnect, and
// player:crash-recovery, and returned (minus Tracking) on player:connect.
type Document struct {
	V         int        `json:"v"`
	SteamID   string     `json:"steamId"`
	EosID     *string    `json:"eosId"`
	Name      *string    `json:"name"`
	ServerID  *string    `json:"serverId"`
	LastSync  time.Time  `json:"lastSync"`
	SyncSeq   int64      `json:"syncSeq"`
	Stats     Stats      `json:"stats"`
	Skins     Skins      `json:"skins"`
	Loadout   []Loadout  `json:"loadout"`
	Perks     []string   `json:"perks"`
	PermaUnlocks     []string `json:"permaUnlocks"`
	SupporterStatus  []string `json:"supporterStatus"`
	Tracking  *Tracking  `json:"tracking,omitempty"`
}

// Stats mirrors the PlayerStats relational row (§3).
type Stats struct {
	Currency      int64      `json:"currency"`
	CurrencyTotal int64      `json:"currencyTotal"`
	CurrencySpent int64      `json:"currencySpent"`
	XP            int64      `json:"xp"`
	XPTotal       int64      `json:"xpTotal"`
	Prestige      int        `json:"prestige"`
	PermaTokens   int64      `json:"permaTokens"`
	DailyClaims   int64      `json:"dailyClaims"`
	GamesPlayed   int64      `json:"gamesPlayed"`
	TimePlayed    int64      `json:"timePlayed"`
	JoinTime      *time.Time `json:"joinTime"`
	DailyClaimTime *time.Time `json:"dailyClaimTime"`
}

// Skins mirrors the PlayerSkins relational row; each field is a
// faction-scoped optional skin identifier.
type Skins struct {
	Indfor *string `json:"indfor"`
	Blufor *string `json:"blufor"`
	Redfor *string `json:"redfor"`
}

// Loadout is one LoadoutSlot row. Duplicate slot numbers across entries are
// permitted (§3); the Store applies replace semantics for the whole slice.
type Loadout struct {
	Slot   int     `json:"slot"`
	Family *string `json:"family"`
	Item   string  `json:"item"`
	Count  int     `json:"count"`
}

// Tracking holds the five open-keyed counter maps maintained by the game
// server during a session (§6.2, GLOSSARY). Values are absolute counters,
// not deltas: the service always stores the newest value it sees.
type Tracking struct {
	Kills        map[string]int64 `json:"kills"`
	VehicleKills map[string]int64 `json:"vehicleKills"`
	Purchases    map[string]int64 `json:"purchases"`
	WeaponXP     map[string]int64 `json:"weaponXp"`
	Rewards      map[string]int64 `json:"rewards"`
}
