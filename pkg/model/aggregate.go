package model

// PlayerFull is a Player plus every associated side table, read back in one
// consistent snapshot by Store.FindPlayerFull (§4.3). It is the shape the
// engine exports back out to a v2 Document.
type PlayerFull struct {
	Player          Player
	Stats           PlayerStats
	Skins           PlayerSkins
	Supporter       *SupporterStatus
	Loadout         []LoadoutSlot
	Perks           []PlayerPerk
	PermanentUnlock []PermanentUnlock
	Kills           []CounterEntry
	VehicleKills    []CounterEntry
	Purchases       []CounterEntry
	WeaponXP        []CounterEntry
	Rewards         []CounterEntry
}

// ToDocument converts the relational snapshot back into the wire shape.
// includeTracking controls whether the five open-keyed counter maps are
// populated: Connect responses omit them (§4.2.1 step 4, §9 Open Question),
// while the HTTP export endpoint (§6.3) includes them.
func (p *PlayerFull) ToDocument(includeTracking bool) *Document {
	doc := &Document{
		V:        DocumentVersion,
		SteamID:  p.Player.SteamID,
		EosID:    p.Player.EosID,
		Name:     p.Player.Name,
		ServerID: p.Player.ActiveServerID,
		SyncSeq:  p.Player.SyncSeq,
		Stats: Stats{
			Currency:       p.Stats.Currency,
			CurrencyTotal:  p.Stats.CurrencyTotal,
			CurrencySpent:  p.Stats.CurrencySpent,
			XP:             p.Stats.XP,
			XPTotal:        p.Stats.XPTotal,
			Prestige:       p.Stats.Prestige,
			PermaTokens:    p.Stats.PermaTokens,
			DailyClaims:    p.Stats.DailyClaims,
			GamesPlayed:    p.Stats.GamesPlayed,
			TimePlayed:     p.Stats.TimePlayed,
			JoinTime:       p.Stats.JoinTime,
			DailyClaimTime: p.Stats.DailyClaimTime,
		},
		Skins: Skins{
			Indfor: p.Skins.Indfor,
			Blufor: p.Skins.Blufor,
			Redfor: p.Skins.Redfor,
		},
	}

	for _, slot := range p.Loadout {
		doc.Loadout = append(doc.Loadout, Loadout{
			Slot: slot.Slot, Family: slot.Family, Item: slot.Item, Count: slot.Count,
		})
	}
	for _, perk := range p.Perks {
		doc.Perks = append(doc.Perks, perk.PerkName)
	}
	for _, u := range p.PermanentUnlock {
		doc.PermaUnlocks = append(doc.PermaUnlocks, u.WeaponName)
	}
	if p.Supporter != nil {
		doc.SupporterStatus = []string{p.Supporter.Tier}
	}

	if includeTracking {
		doc.Tracking = &Tracking{
			Kills:        counterMap(p.Kills),
			VehicleKills: counterMap(p.VehicleKills),
			Purchases:    counterMap(p.Purchases),
			WeaponXP:     counterMap(p.WeaponXP),
			Rewards:      counterMap(p.Rewards),
		}
	}

	return doc
}

func counterMap(entries []CounterEntry) map[string]int64 {
	m := make(map[string]int64, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Count
	}
	return m
}
