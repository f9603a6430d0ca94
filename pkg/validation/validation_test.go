package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goldbox-rpg/pkg/model"
)

func validDoc() *model.Document {
	return &model.Document{
		V:       model.DocumentVersion,
		SteamID: "76561198000000001",
		Stats:   model.Stats{Prestige: 0},
		Loadout: []model.Loadout{{Slot: 0, Item: "rifle"}},
		Tracking: &model.Tracking{
			Kills: map[string]int64{"76561198000000099": 5},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Document)
		wantErrs bool
	}{
		{name: "valid document", mutate: func(d *model.Document) {}, wantErrs: false},
		{
			name:     "wrong version",
			mutate:   func(d *model.Document) { d.V = 1 },
			wantErrs: true,
		},
		{
			name:     "steamId too short",
			mutate:   func(d *model.Document) { d.SteamID = "7656119800000001" },
			wantErrs: true,
		},
		{
			name:     "steamId too long",
			mutate:   func(d *model.Document) { d.SteamID = "765611980000000011" },
			wantErrs: true,
		},
		{
			name:     "prestige over 100",
			mutate:   func(d *model.Document) { d.Stats.Prestige = 101 },
			wantErrs: true,
		},
		{
			name:     "negative currency",
			mutate:   func(d *model.Document) { d.Stats.Currency = -1 },
			wantErrs: true,
		},
		{
			name:     "loadout missing item",
			mutate:   func(d *model.Document) { d.Loadout = []model.Loadout{{Slot: 1}} },
			wantErrs: true,
		},
		{
			name: "negative tracking counter",
			mutate: func(d *model.Document) {
				d.Tracking.Rewards = map[string]int64{"daily": -1}
			},
			wantErrs: true,
		},
	}

	validator := NewDocumentValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			errs := validator.Validate(doc)
			if tt.wantErrs {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
