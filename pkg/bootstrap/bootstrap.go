// Package bootstrap optionally seeds GameServer rows from a local YAML file
// at startup, adapted from the teacher's pkg/persistence YAML file-store
// pattern. It exists so a developer can smoke-test the Connector against a
// fresh database without first hand-writing INSERT statements or running a
// full provisioning flow.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
)

// SeedFile is the YAML shape read from disk: a flat list of game servers to
// upsert before the service starts accepting connections.
type SeedFile struct {
	Servers []SeedServer `yaml:"servers"`
}

// SeedServer is one game_servers row to upsert.
type SeedServer struct {
	ServerID string `yaml:"serverId"`
	Token    string `yaml:"token"`
	Active   bool   `yaml:"active"`
}

// LoadSeedFile reads and parses a YAML seed file. A missing file is not an
// error: bootstrap is optional, and most deployments provision GameServer
// rows through their own tooling instead.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var sf SeedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return &sf, nil
}

// Apply upserts every server in sf into st. It is idempotent: re-running it
// against the same file converges to the same rows.
func Apply(ctx context.Context, st store.Store, sf *SeedFile) error {
	if sf == nil {
		return nil
	}
	for _, s := range sf.Servers {
		gs := model.GameServer{ServerID: s.ServerID, Token: s.Token, Active: s.Active}
		if err := st.UpsertGameServer(ctx, gs); err != nil {
			return fmt.Errorf("seeding game server %s: %w", s.ServerID, err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "bootstrap.Apply",
			"serverID": s.ServerID,
		}).Info("seeded game server from dev seed file")
	}
	return nil
}
