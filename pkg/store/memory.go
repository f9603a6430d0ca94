package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goldbox-rpg/pkg/model"
)

// MemoryStore is an in-memory Store used by SyncEngine unit tests so the
// domain logic can be exercised without a live Postgres instance (§9 Design
// Note: "Singleton DB manager... prefer an explicit value passed into the
// SyncEngine so that tests can substitute an in-memory or fake Store").
//
// BeginTx serializes every operation behind the store's single mutex for
// the duration of the transaction; this is sufficient to exercise
// SyncEngine's logic but is not a faithful simulation of a real rollback —
// writes already applied before a Rollback call are not undone. SyncEngine
// never writes before its validation and ownership checks, so this
// limitation is not observable in practice.
type MemoryStore struct {
	mu sync.Mutex

	nextPlayerID int64
	players      map[string]*model.Player // by steamId
	stats        map[int64]model.PlayerStats
	skins        map[int64]model.PlayerSkins
	supporter    map[int64]model.SupporterStatus
	loadout      map[int64][]model.LoadoutSlot
	perks        map[int64][]string
	permaUnlocks map[int64]map[string]time.Time
	counters     map[CounterTable]map[int64]map[string]int64
	gameServers  map[string]model.GameServer // by token
	auditEntries []model.AuditEntry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextPlayerID: 1,
		players:      make(map[string]*model.Player),
		stats:        make(map[int64]model.PlayerStats),
		skins:        make(map[int64]model.PlayerSkins),
		supporter:    make(map[int64]model.SupporterStatus),
		loadout:      make(map[int64][]model.LoadoutSlot),
		perks:        make(map[int64][]string),
		permaUnlocks: make(map[int64]map[string]time.Time),
		counters: map[CounterTable]map[int64]map[string]int64{
			TableKills: {}, TableVehicleKills: {}, TablePurchases: {},
			TableWeaponXP: {}, TableRewards: {},
		},
		gameServers: make(map[string]model.GameServer),
	}
}

// SeedGameServer registers a GameServer row directly, bypassing migrations,
// for test setup.
func (s *MemoryStore) SeedGameServer(gs model.GameServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameServers[gs.Token] = gs
}

// AuditEntries returns a snapshot of every committed audit entry, for test
// assertions.
func (s *MemoryStore) AuditEntries() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEntry, len(s.auditEntries))
	copy(out, s.auditEntries)
	return out
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) BeginTx(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &memTx{store: s}, nil
}

func (s *MemoryStore) FindGameServerByToken(ctx context.Context, token string) (*model.GameServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.gameServers[token]
	if !ok {
		return nil, nil
	}
	return &gs, nil
}

func (s *MemoryStore) SweepServer(ctx context.Context, serverID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := 0
	for _, p := range s.players {
		if p.ActiveServerID != nil && *p.ActiveServerID == serverID {
			p.ActiveServerID = nil
			p.ActiveSince = nil
			cleared++
		}
	}
	return cleared, nil
}

func (s *MemoryStore) UpsertGameServer(ctx context.Context, gs model.GameServer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameServers[gs.Token] = gs
	return nil
}

func (s *MemoryStore) CompactAuditLog(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.auditEntries[:0]
	deleted := 0
	for _, e := range s.auditEntries {
		if !e.Flagged && e.CreatedAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.auditEntries = kept
	return deleted, nil
}

// memTx implements Tx directly against the parent MemoryStore's maps while
// holding its mutex.
type memTx struct {
	store *MemoryStore
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.finish()
	return nil
}

func (t *memTx) finish() {
	if !t.done {
		t.done = true
		t.store.mu.Unlock()
	}
}

func (t *memTx) FindOrCreatePlayer(ctx context.Context, steamID string) (*model.Player, bool, error) {
	if p, ok := t.store.players[steamID]; ok {
		cp := *p
		return &cp, false, nil
	}

	id := t.store.nextPlayerID
	t.store.nextPlayerID++
	p := &model.Player{PlayerID: id, SteamID: steamID, SyncSeq: 0}
	t.store.players[steamID] = p
	t.store.stats[id] = model.PlayerStats{PlayerID: id}
	t.store.skins[id] = model.PlayerSkins{PlayerID: id}

	cp := *p
	return &cp, true, nil
}

func (t *memTx) FindPlayerFull(ctx context.Context, steamID string) (*model.PlayerFull, error) {
	p, ok := t.store.players[steamID]
	if !ok {
		return nil, nil
	}

	full := &model.PlayerFull{
		Player: *p,
		Stats:  t.store.stats[p.PlayerID],
		Skins:  t.store.skins[p.PlayerID],
	}
	if sup, ok := t.store.supporter[p.PlayerID]; ok {
		supCopy := sup
		full.Supporter = &supCopy
	}
	full.Loadout = append(full.Loadout, t.store.loadout[p.PlayerID]...)
	for _, name := range t.store.perks[p.PlayerID] {
		full.Perks = append(full.Perks, model.PlayerPerk{PlayerID: p.PlayerID, PerkName: name})
	}
	for name, at := range t.store.permaUnlocks[p.PlayerID] {
		full.PermanentUnlock = append(full.PermanentUnlock, model.PermanentUnlock{
			PlayerID: p.PlayerID, WeaponName: name, UnlockedAt: at,
		})
	}
	full.Kills = counterEntries(t.store.counters[TableKills][p.PlayerID], p.PlayerID)
	full.VehicleKills = counterEntries(t.store.counters[TableVehicleKills][p.PlayerID], p.PlayerID)
	full.Purchases = counterEntries(t.store.counters[TablePurchases][p.PlayerID], p.PlayerID)
	full.WeaponXP = counterEntries(t.store.counters[TableWeaponXP][p.PlayerID], p.PlayerID)
	full.Rewards = counterEntries(t.store.counters[TableRewards][p.PlayerID], p.PlayerID)

	return full, nil
}

func counterEntries(m map[string]int64, playerID int64) []model.CounterEntry {
	var out []model.CounterEntry
	for k, v := range m {
		out = append(out, model.CounterEntry{PlayerID: playerID, Key: k, Count: v})
	}
	return out
}

func (t *memTx) SetSessionLock(ctx context.Context, playerID int64, serverID *string, since *time.Time) error {
	p := t.playerByID(playerID)
	if p == nil {
		return fmt.Errorf("player %d not found", playerID)
	}
	p.ActiveServerID = serverID
	p.ActiveSince = since
	return nil
}

func (t *memTx) UpdatePlayerMeta(ctx context.Context, playerID int64, eosID, name *string, syncSeq int64) error {
	p := t.playerByID(playerID)
	if p == nil {
		return fmt.Errorf("player %d not found", playerID)
	}
	if eosID != nil {
		p.EosID = eosID
	}
	if name != nil {
		p.Name = name
	}
	p.SyncSeq = syncSeq
	return nil
}

func (t *memTx) playerByID(playerID int64) *model.Player {
	for _, p := range t.store.players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

func (t *memTx) UpsertStats(ctx context.Context, s model.PlayerStats) error {
	t.store.stats[s.PlayerID] = s
	return nil
}

func (t *memTx) UpsertSkins(ctx context.Context, sk model.PlayerSkins) error {
	t.store.skins[sk.PlayerID] = sk
	return nil
}

func (t *memTx) UpsertSupporter(ctx context.Context, sup model.SupporterStatus) error {
	t.store.supporter[sup.PlayerID] = sup
	return nil
}

func (t *memTx) ReplaceLoadout(ctx context.Context, playerID int64, slots []model.LoadoutSlot) error {
	cp := make([]model.LoadoutSlot, len(slots))
	copy(cp, slots)
	t.store.loadout[playerID] = cp
	return nil
}

func (t *memTx) ReplacePerks(ctx context.Context, playerID int64, perkNames []string) error {
	cp := make([]string, len(perkNames))
	copy(cp, perkNames)
	t.store.perks[playerID] = cp
	return nil
}

func (t *memTx) UpsertPermanentUnlocks(ctx context.Context, playerID int64, weaponNames []string, unlockedAt time.Time) error {
	existing, ok := t.store.permaUnlocks[playerID]
	if !ok {
		existing = make(map[string]time.Time)
		t.store.permaUnlocks[playerID] = existing
	}
	for _, name := range weaponNames {
		if _, already := existing[name]; !already {
			existing[name] = unlockedAt
		}
	}
	return nil
}

func (t *memTx) UpsertCounters(ctx context.Context, table CounterTable, playerID int64, values map[string]int64) error {
	byPlayer, ok := t.store.counters[table]
	if !ok {
		return fmt.Errorf("unknown counter table %q", table)
	}
	existing, ok := byPlayer[playerID]
	if !ok {
		existing = make(map[string]int64)
		byPlayer[playerID] = existing
	}
	for k, v := range values {
		existing[k] = v
	}
	return nil
}

func (t *memTx) InsertAuditEntry(ctx context.Context, entry model.AuditEntry) error {
	t.store.auditEntries = append(t.store.auditEntries, entry)
	return nil
}
