package model

import "time"

// Player is the aggregate root identified by a 17-digit decimal steam
// identifier. PlayerID is the opaque numeric surrogate assigned at first
// sight and used as the foreign key for every side table (§3).
type Player struct {
	PlayerID        int64
	SteamID         string
	EosID           *string
	Name            *string
	SyncSeq         int64
	ActiveServerID  *string
	ActiveSince     *time.Time
}

// IsOwned reports whether a game server currently holds the session lock.
func (p *Player) IsOwned() bool {
	return p != nil && p.ActiveServerID != nil
}

// OwnedBy reports whether serverID currently holds the session lock.
func (p *Player) OwnedBy(serverID string) bool {
	return p.IsOwned() && *p.ActiveServerID == serverID
}

// SessionExpired reports whether the current owner's session lock has
// outlived timeout as measured from now (§4.2.1 step 2).
func (p *Player) SessionExpired(now time.Time, timeout time.Duration) bool {
	if !p.IsOwned() || p.ActiveSince == nil {
		return true
	}
	return now.Sub(*p.ActiveSince) >= timeout
}

// PlayerStats is the 1:1 PlayerStats relational row.
type PlayerStats struct {
	PlayerID       int64
	Currency       int64
	CurrencyTotal  int64
	CurrencySpent  int64
	XP             int64
	XPTotal        int64
	Prestige       int
	PermaTokens    int64
	DailyClaims    int64
	GamesPlayed    int64
	TimePlayed     int64
	JoinTime       *time.Time
	DailyClaimTime *time.Time
}

// PlayerSkins is the 1:1 PlayerSkins relational row.
type PlayerSkins struct {
	PlayerID int64
	Indfor   *string
	Blufor   *string
	Redfor   *string
}

// SupporterStatus is the 0..1 SupporterStatus relational row.
type SupporterStatus struct {
	PlayerID int64
	Tier     string
	Expiry   *time.Time
}

// LoadoutSlot is one 1:N LoadoutSlot relational row.
type LoadoutSlot struct {
	PlayerID int64
	Slot     int
	Family   *string
	Item     string
	Count    int
}

// PlayerPerk is one unique (player, perkName) row.
type PlayerPerk struct {
	PlayerID int64
	PerkName string
}

// PermanentUnlock is one unique (player, weaponName) row; the unlock
// timestamp is set on first insert and never rewritten on re-sync (§4.2.2
// step 5).
type PermanentUnlock struct {
	PlayerID   int64
	WeaponName string
	UnlockedAt time.Time
}

// CounterEntry is the shared shape of the five tracking side tables
// (Reward, Kill, VehicleKill, Purchase, WeaponXp), each keyed by a compound
// (player, key) unique constraint with a single counter column.
type CounterEntry struct {
	PlayerID int64
	Key      string
	Count    int64
}

// DiscordLink is a 0..N external-id to player link.
type DiscordLink struct {
	PlayerID   int64
	ExternalID string
	Verified   bool
}

// GameServer is the Registry's authoritative record for a connector
// session.
type GameServer struct {
	ServerID   string
	Token      string
	Active     bool
	Flagged    bool
	FlagReason string
	LastSeen   time.Time
}

// AuditKind enumerates the four audited operation kinds: connect, periodic
// sync, disconnect, and crash recovery.
type AuditKind string

const (
	AuditConnect       AuditKind = "connect"
	AuditPeriodic      AuditKind = "periodic"
	AuditDisconnect    AuditKind = "disconnect"
	AuditCrashRecovery AuditKind = "crash_recovery"
)

// AuditEntry is one append-only row in the audit log (§3).
type AuditEntry struct {
	ServerID       string
	PlayerSteamID  string
	Kind           AuditKind
	SeqBefore      *int64
	SeqAfter       *int64
	BeforeSummary  []byte
	AfterSummary   []byte
	Flagged        bool
	FlagReason     string
	DurationMs     int64
	CreatedAt      time.Time
}
