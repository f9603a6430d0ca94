// Package sweeper runs the periodic background jobs that keep session
// locks and the audit log consistent once a game server goes dark without
// a clean disconnect: the liveness sweep (§4.1) and audit-log compaction
// (§9 Design Note).
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/store"
)

// Registry is the subset of registry.Registry the sweeper needs: the set of
// currently connected servers, and the ability to clear a disconnected
// server's session locks.
type Registry interface {
	ConnectedServerIDs() []string
	SweepServer(ctx context.Context, serverID string) (int, error)
}

// Sweeper owns a cron schedule that periodically releases session locks
// held by servers no longer connected, and compacts the audit log.
type Sweeper struct {
	cron     *cron.Cron
	registry Registry
	store    store.Store

	// knownServerIDs is every serverId ever configured to dial into this
	// service, so the liveness sweep can catch a server that vanished
	// without ever unregistering (crashed, network partition). It is not
	// the Registry's live-connection set; it is the broader candidate set
	// the sweep checks against that set.
	knownServerIDs []string

	sweepInterval  time.Duration
	auditRetention time.Duration
}

// New constructs a Sweeper. knownServerIDs is the full set of serverIds this
// deployment expects to see connect (cmd/syncserver passes the serverIds of
// the config.GameServers targets whose tokens resolve at startup; servers
// seen only through the reverse listener are not added); auditRetention of
// 0 disables compaction.
func New(reg Registry, st store.Store, knownServerIDs []string, sweepInterval, auditRetention time.Duration) *Sweeper {
	return &Sweeper{
		cron:           cron.New(),
		registry:       reg,
		store:          st,
		knownServerIDs: knownServerIDs,
		sweepInterval:  sweepInterval,
		auditRetention: auditRetention,
	}
}

// Start schedules the liveness sweep and (if enabled) audit compaction, and
// starts the cron scheduler's own goroutine. Start does not block.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.sweepInterval <= 0 {
		s.sweepInterval = time.Minute
	}
	if _, err := s.cron.AddFunc(everySpec(s.sweepInterval), func() {
		s.runLivenessSweep(ctx)
	}); err != nil {
		return err
	}

	if s.auditRetention > 0 {
		if _, err := s.cron.AddFunc("@daily", func() {
			s.runAuditCompaction(ctx)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop blocks until any in-flight job completes, then halts the scheduler.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runLivenessSweep(ctx context.Context) {
	connected := make(map[string]bool)
	for _, id := range s.registry.ConnectedServerIDs() {
		connected[id] = true
	}

	for _, id := range s.knownServerIDs {
		if connected[id] {
			continue
		}
		cleared, err := s.registry.SweepServer(ctx, id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "runLivenessSweep",
				"serverID": id,
				"error":    err,
			}).Error("failed to sweep disconnected server")
			continue
		}
		if cleared > 0 {
			logrus.WithFields(logrus.Fields{
				"function": "runLivenessSweep",
				"serverID": id,
				"cleared":  cleared,
			}).Info("released session locks for disconnected server")
		}
	}
}

func (s *Sweeper) runAuditCompaction(ctx context.Context) {
	cutoff := time.Now().Add(-s.auditRetention)
	deleted, err := s.store.CompactAuditLog(ctx, cutoff)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "runAuditCompaction",
			"error":    err,
		}).Error("audit log compaction failed")
		return
	}
	if deleted > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "runAuditCompaction",
			"deleted":  deleted,
			"cutoff":   cutoff,
		}).Info("compacted audit log")
	}
}

// everySpec builds a robfig/cron "@every" schedule from a Go duration.
func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
