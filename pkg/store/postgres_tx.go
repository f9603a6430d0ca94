package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"goldbox-rpg/pkg/model"
)

// pgTx implements Tx against a single live pgx.Tx. No method here opens or
// closes the transaction; Commit/Rollback delegate straight through.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (t *pgTx) FindOrCreatePlayer(ctx context.Context, steamID string) (*model.Player, bool, error) {
	player, err := t.findPlayer(ctx, steamID)
	if err != nil {
		return nil, false, err
	}
	if player != nil {
		return player, false, nil
	}

	var playerID int64
	err = t.tx.QueryRow(ctx, `
		INSERT INTO players (steam_id, sync_seq) VALUES ($1, 0)
		RETURNING player_id`, steamID).Scan(&playerID)
	if err != nil {
		return nil, false, fmt.Errorf("creating player %s: %w", steamID, err)
	}
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO player_stats (player_id) VALUES ($1)`, playerID); err != nil {
		return nil, false, fmt.Errorf("creating default stats for player %s: %w", steamID, err)
	}
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO player_skins (player_id) VALUES ($1)`, playerID); err != nil {
		return nil, false, fmt.Errorf("creating default skins for player %s: %w", steamID, err)
	}

	return &model.Player{PlayerID: playerID, SteamID: steamID, SyncSeq: 0}, true, nil
}

func (t *pgTx) findPlayer(ctx context.Context, steamID string) (*model.Player, error) {
	var p model.Player
	row := t.tx.QueryRow(ctx, `
		SELECT player_id, steam_id, eos_id, name, sync_seq, active_server_id, active_since
		FROM players WHERE steam_id = $1 FOR UPDATE`, steamID)
	err := row.Scan(&p.PlayerID, &p.SteamID, &p.EosID, &p.Name, &p.SyncSeq, &p.ActiveServerID, &p.ActiveSince)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying player %s: %w", steamID, err)
	}
	return &p, nil
}

func (t *pgTx) FindPlayerFull(ctx context.Context, steamID string) (*model.PlayerFull, error) {
	player, err := t.findPlayer(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, nil
	}

	full := &model.PlayerFull{Player: *player}
	id := player.PlayerID

	row := t.tx.QueryRow(ctx, `
		SELECT currency, currency_total, currency_spent, xp, xp_total, prestige,
		       perma_tokens, daily_claims, games_played, time_played, join_time, daily_claim_time
		FROM player_stats WHERE player_id = $1`, id)
	if err := row.Scan(&full.Stats.Currency, &full.Stats.CurrencyTotal, &full.Stats.CurrencySpent,
		&full.Stats.XP, &full.Stats.XPTotal, &full.Stats.Prestige, &full.Stats.PermaTokens,
		&full.Stats.DailyClaims, &full.Stats.GamesPlayed, &full.Stats.TimePlayed,
		&full.Stats.JoinTime, &full.Stats.DailyClaimTime); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("querying stats for player %d: %w", id, err)
	}
	full.Stats.PlayerID = id

	row = t.tx.QueryRow(ctx, `SELECT indfor, blufor, redfor FROM player_skins WHERE player_id = $1`, id)
	if err := row.Scan(&full.Skins.Indfor, &full.Skins.Blufor, &full.Skins.Redfor); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("querying skins for player %d: %w", id, err)
	}
	full.Skins.PlayerID = id

	var sup model.SupporterStatus
	row = t.tx.QueryRow(ctx, `SELECT tier, expiry FROM supporter_statuses WHERE player_id = $1`, id)
	switch err := row.Scan(&sup.Tier, &sup.Expiry); {
	case errors.Is(err, pgx.ErrNoRows):
		// no supporter row; leave full.Supporter nil
	case err != nil:
		return nil, fmt.Errorf("querying supporter status for player %d: %w", id, err)
	default:
		sup.PlayerID = id
		full.Supporter = &sup
	}

	if full.Loadout, err = t.queryLoadout(ctx, id); err != nil {
		return nil, err
	}
	if full.Perks, err = t.queryPerks(ctx, id); err != nil {
		return nil, err
	}
	if full.PermanentUnlock, err = t.queryPermanentUnlocks(ctx, id); err != nil {
		return nil, err
	}
	if full.Kills, err = t.queryCounters(ctx, TableKills, id); err != nil {
		return nil, err
	}
	if full.VehicleKills, err = t.queryCounters(ctx, TableVehicleKills, id); err != nil {
		return nil, err
	}
	if full.Purchases, err = t.queryCounters(ctx, TablePurchases, id); err != nil {
		return nil, err
	}
	if full.WeaponXP, err = t.queryCounters(ctx, TableWeaponXP, id); err != nil {
		return nil, err
	}
	if full.Rewards, err = t.queryCounters(ctx, TableRewards, id); err != nil {
		return nil, err
	}

	return full, nil
}

func (t *pgTx) queryLoadout(ctx context.Context, playerID int64) ([]model.LoadoutSlot, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT slot, family, item, count FROM loadout_slots WHERE player_id = $1 ORDER BY id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying loadout for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var slots []model.LoadoutSlot
	for rows.Next() {
		var s model.LoadoutSlot
		if err := rows.Scan(&s.Slot, &s.Family, &s.Item, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning loadout row: %w", err)
		}
		s.PlayerID = playerID
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (t *pgTx) queryPerks(ctx context.Context, playerID int64) ([]model.PlayerPerk, error) {
	rows, err := t.tx.Query(ctx, `SELECT perk_name FROM player_perks WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying perks for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var perks []model.PlayerPerk
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning perk row: %w", err)
		}
		perks = append(perks, model.PlayerPerk{PlayerID: playerID, PerkName: name})
	}
	return perks, rows.Err()
}

func (t *pgTx) queryPermanentUnlocks(ctx context.Context, playerID int64) ([]model.PermanentUnlock, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT weapon_name, unlocked_at FROM permanent_unlocks WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying permanent unlocks for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var unlocks []model.PermanentUnlock
	for rows.Next() {
		var u model.PermanentUnlock
		if err := rows.Scan(&u.WeaponName, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scanning permanent unlock row: %w", err)
		}
		u.PlayerID = playerID
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

func (t *pgTx) queryCounters(ctx context.Context, table CounterTable, playerID int64) ([]model.CounterEntry, error) {
	keyColumn, err := counterKeyColumn(table)
	if err != nil {
		return nil, err
	}
	countColumn := "count"
	if table == TableWeaponXP {
		countColumn = "xp"
	}

	rows, err := t.tx.Query(ctx, fmt.Sprintf(`
		SELECT %s, %s FROM %s WHERE player_id = $1`, keyColumn, countColumn, table), playerID)
	if err != nil {
		return nil, fmt.Errorf("querying %s for player %d: %w", table, playerID, err)
	}
	defer rows.Close()

	var entries []model.CounterEntry
	for rows.Next() {
		var e model.CounterEntry
		if err := rows.Scan(&e.Key, &e.Count); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		e.PlayerID = playerID
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *pgTx) SetSessionLock(ctx context.Context, playerID int64, serverID *string, since *time.Time) error {
	if _, err := t.tx.Exec(ctx, `
		UPDATE players SET active_server_id = $2, active_since = $3 WHERE player_id = $1`,
		playerID, serverID, since); err != nil {
		return fmt.Errorf("setting session lock for player %d: %w", playerID, err)
	}
	return nil
}

func (t *pgTx) UpdatePlayerMeta(ctx context.Context, playerID int64, eosID, name *string, syncSeq int64) error {
	if _, err := t.tx.Exec(ctx, `
		UPDATE players SET
			eos_id = COALESCE($2, eos_id),
			name = COALESCE($3, name),
			sync_seq = $4
		WHERE player_id = $1`, playerID, eosID, name, syncSeq); err != nil {
		return fmt.Errorf("updating player meta for %d: %w", playerID, err)
	}
	return nil
}

func (t *pgTx) UpsertStats(ctx context.Context, s model.PlayerStats) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO player_stats (player_id, currency, currency_total, currency_spent, xp, xp_total,
			prestige, perma_tokens, daily_claims, games_played, time_played, join_time, daily_claim_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (player_id) DO UPDATE SET
			currency = EXCLUDED.currency, currency_total = EXCLUDED.currency_total,
			currency_spent = EXCLUDED.currency_spent, xp = EXCLUDED.xp, xp_total = EXCLUDED.xp_total,
			prestige = EXCLUDED.prestige, perma_tokens = EXCLUDED.perma_tokens,
			daily_claims = EXCLUDED.daily_claims, games_played = EXCLUDED.games_played,
			time_played = EXCLUDED.time_played, join_time = EXCLUDED.join_time,
			daily_claim_time = EXCLUDED.daily_claim_time`,
		s.PlayerID, s.Currency, s.CurrencyTotal, s.CurrencySpent, s.XP, s.XPTotal, s.Prestige,
		s.PermaTokens, s.DailyClaims, s.GamesPlayed, s.TimePlayed, s.JoinTime, s.DailyClaimTime)
	if err != nil {
		return fmt.Errorf("upserting stats for player %d: %w", s.PlayerID, err)
	}
	return nil
}

func (t *pgTx) UpsertSkins(ctx context.Context, sk model.PlayerSkins) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO player_skins (player_id, indfor, blufor, redfor) VALUES ($1,$2,$3,$4)
		ON CONFLICT (player_id) DO UPDATE SET
			indfor = EXCLUDED.indfor, blufor = EXCLUDED.blufor, redfor = EXCLUDED.redfor`,
		sk.PlayerID, sk.Indfor, sk.Blufor, sk.Redfor)
	if err != nil {
		return fmt.Errorf("upserting skins for player %d: %w", sk.PlayerID, err)
	}
	return nil
}

func (t *pgTx) UpsertSupporter(ctx context.Context, sup model.SupporterStatus) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO supporter_statuses (player_id, tier, expiry) VALUES ($1,$2,$3)
		ON CONFLICT (player_id) DO UPDATE SET tier = EXCLUDED.tier, expiry = EXCLUDED.expiry`,
		sup.PlayerID, sup.Tier, sup.Expiry)
	if err != nil {
		return fmt.Errorf("upserting supporter status for player %d: %w", sup.PlayerID, err)
	}
	return nil
}

// ReplaceLoadout deletes every existing row for the player then inserts the
// new set in order, preserving the replace semantics of §4.2.2 step 5 and
// §9's Design Note (collapsing this to upsert would leak old slots).
func (t *pgTx) ReplaceLoadout(ctx context.Context, playerID int64, slots []model.LoadoutSlot) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM loadout_slots WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clearing loadout for player %d: %w", playerID, err)
	}
	for _, s := range slots {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO loadout_slots (player_id, slot, family, item, count)
			VALUES ($1,$2,$3,$4,$5)`, playerID, s.Slot, s.Family, s.Item, s.Count); err != nil {
			return fmt.Errorf("inserting loadout slot for player %d: %w", playerID, err)
		}
	}
	return nil
}

// ReplacePerks mirrors ReplaceLoadout's replace semantics.
func (t *pgTx) ReplacePerks(ctx context.Context, playerID int64, perkNames []string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM player_perks WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clearing perks for player %d: %w", playerID, err)
	}
	for _, name := range perkNames {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO player_perks (player_id, perk_name) VALUES ($1,$2)
			ON CONFLICT DO NOTHING`, playerID, name); err != nil {
			return fmt.Errorf("inserting perk for player %d: %w", playerID, err)
		}
	}
	return nil
}

// UpsertPermanentUnlocks is additive: existing rows keep their unlockedAt
// (§4.2.2 step 5 — "existing rows keep their unlock timestamp").
func (t *pgTx) UpsertPermanentUnlocks(ctx context.Context, playerID int64, weaponNames []string, unlockedAt time.Time) error {
	for _, name := range weaponNames {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO permanent_unlocks (player_id, weapon_name, unlocked_at) VALUES ($1,$2,$3)
			ON CONFLICT (player_id, weapon_name) DO NOTHING`, playerID, name, unlockedAt); err != nil {
			return fmt.Errorf("inserting permanent unlock for player %d: %w", playerID, err)
		}
	}
	return nil
}

// UpsertCounters stores the newest absolute value for every key present in
// values (tracking maps are absolute counters, not deltas — GLOSSARY).
func (t *pgTx) UpsertCounters(ctx context.Context, table CounterTable, playerID int64, values map[string]int64) error {
	keyColumn, err := counterKeyColumn(table)
	if err != nil {
		return err
	}
	countColumn := "count"
	if table == TableWeaponXP {
		countColumn = "xp"
	}

	for key, count := range values {
		query := fmt.Sprintf(`
			INSERT INTO %s (player_id, %s, %s) VALUES ($1,$2,$3)
			ON CONFLICT (player_id, %s) DO UPDATE SET %s = EXCLUDED.%s`,
			table, keyColumn, countColumn, keyColumn, countColumn, countColumn)
		if _, err := t.tx.Exec(ctx, query, playerID, key, count); err != nil {
			return fmt.Errorf("upserting %s entry for player %d: %w", table, playerID, err)
		}
	}
	return nil
}

func (t *pgTx) InsertAuditEntry(ctx context.Context, e model.AuditEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_entries (server_id, player_steam_id, kind, seq_before, seq_after,
			before_summary, after_summary, flagged, flag_reason, duration_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ServerID, e.PlayerSteamID, string(e.Kind), e.SeqBefore, e.SeqAfter,
		e.BeforeSummary, e.AfterSummary, e.Flagged, e.FlagReason, e.DurationMs, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry for %s: %w", e.PlayerSteamID, err)
	}
	return nil
}

func counterKeyColumn(table CounterTable) (string, error) {
	switch table {
	case TableKills:
		return "victim_steam_id", nil
	case TableVehicleKills:
		return "vehicle_name", nil
	case TablePurchases:
		return "item_name", nil
	case TableWeaponXP:
		return "weapon_name", nil
	case TableRewards:
		return "reward_type", nil
	default:
		return "", fmt.Errorf("unknown counter table %q", table)
	}
}
