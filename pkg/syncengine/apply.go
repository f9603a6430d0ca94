package syncengine

import (
	"context"
	"time"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
)

// applyDocument writes every side table carried by doc into tx for
// playerID, following the replace/upsert split of §4.2.2 step 5: Loadout
// and Perks are replaced wholesale, PermanentUnlock and the five tracking
// counters are additive.
func applyDocument(ctx context.Context, tx store.Tx, playerID int64, doc *model.Document, syncTime time.Time) error {
	if err := tx.UpsertStats(ctx, model.PlayerStats{
		PlayerID:       playerID,
		Currency:       doc.Stats.Currency,
		CurrencyTotal:  doc.Stats.CurrencyTotal,
		CurrencySpent:  doc.Stats.CurrencySpent,
		XP:             doc.Stats.XP,
		XPTotal:        doc.Stats.XPTotal,
		Prestige:       doc.Stats.Prestige,
		PermaTokens:    doc.Stats.PermaTokens,
		DailyClaims:    doc.Stats.DailyClaims,
		GamesPlayed:    doc.Stats.GamesPlayed,
		TimePlayed:     doc.Stats.TimePlayed,
		JoinTime:       doc.Stats.JoinTime,
		DailyClaimTime: doc.Stats.DailyClaimTime,
	}); err != nil {
		return err
	}

	if err := tx.UpsertSkins(ctx, model.PlayerSkins{
		PlayerID: playerID,
		Indfor:   doc.Skins.Indfor,
		Blufor:   doc.Skins.Blufor,
		Redfor:   doc.Skins.Redfor,
	}); err != nil {
		return err
	}

	if len(doc.SupporterStatus) > 0 {
		if err := tx.UpsertSupporter(ctx, model.SupporterStatus{
			PlayerID: playerID,
			Tier:     doc.SupporterStatus[0],
		}); err != nil {
			return err
		}
	}

	slots := make([]model.LoadoutSlot, len(doc.Loadout))
	for i, l := range doc.Loadout {
		slots[i] = model.LoadoutSlot{PlayerID: playerID, Slot: l.Slot, Family: l.Family, Item: l.Item, Count: l.Count}
	}
	if err := tx.ReplaceLoadout(ctx, playerID, slots); err != nil {
		return err
	}

	if err := tx.ReplacePerks(ctx, playerID, doc.Perks); err != nil {
		return err
	}

	if len(doc.PermaUnlocks) > 0 {
		if err := tx.UpsertPermanentUnlocks(ctx, playerID, doc.PermaUnlocks, syncTime); err != nil {
			return err
		}
	}

	if doc.Tracking != nil {
		counters := []struct {
			table  store.CounterTable
			values map[string]int64
		}{
			{store.TableKills, doc.Tracking.Kills},
			{store.TableVehicleKills, doc.Tracking.VehicleKills},
			{store.TablePurchases, doc.Tracking.Purchases},
			{store.TableWeaponXP, doc.Tracking.WeaponXP},
			{store.TableRewards, doc.Tracking.Rewards},
		}
		for _, c := range counters {
			if len(c.values) == 0 {
				continue
			}
			if err := tx.UpsertCounters(ctx, c.table, playerID, c.values); err != nil {
				return err
			}
		}
	}

	return nil
}
