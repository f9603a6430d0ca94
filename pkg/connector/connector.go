package connector

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/config"
	"goldbox-rpg/pkg/metrics"
	"goldbox-rpg/pkg/registry"
	"goldbox-rpg/pkg/resilience"
	"goldbox-rpg/pkg/retry"
	"goldbox-rpg/pkg/syncengine"
)

// Connector owns every live game-server session, dialed outbound or
// accepted on the reverse listener, and keeps the Registry's connection
// map in sync with their lifecycle (§4.1, §6.1).
type Connector struct {
	engine   *syncengine.Engine
	registry *registry.Registry
	metrics  *metrics.Metrics
	cfg      *config.Config
	devMode  bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Connector. Start must be called to begin dialing
// configured targets.
func New(engine *syncengine.Engine, reg *registry.Registry, m *metrics.Metrics, cfg *config.Config) *Connector {
	return &Connector{
		engine:   engine,
		registry: reg,
		metrics:  m,
		cfg:      cfg,
		devMode:  cfg.EnableDevMode,
	}
}

// Start dials every configured GameServerDialTarget in its own reconnect
// loop. It returns immediately; dialing continues in the background until
// ctx is canceled or Shutdown is called.
func (c *Connector) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, target := range c.cfg.GameServers {
		target := target
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.dialLoop(ctx, target)
		}()
	}
}

// Shutdown stops all outbound dial loops and closes every live session,
// releasing their session locks via the Registry's sweep path.
func (c *Connector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, id := range c.registry.ConnectedServerIDs() {
		if conn, ok := c.registry.Connection(id); ok {
			_ = conn.Close()
		}
	}
	return nil
}

// adopt registers conn as serverID's live session and runs it until it
// closes, then unregisters and sweeps the server's session locks — the
// same cleanup whether the session came from an outbound dial or the
// reverse listener (§4.1: a disconnected game server releases every
// player it held).
func (c *Connector) adopt(ctx context.Context, conn wsConn, serverID string) {
	session := NewSession(conn, serverID, c.engine, c.metrics)
	c.registry.Register(session)
	if c.metrics != nil {
		c.metrics.RecordConnectorEvent(serverID, "connected")
	}

	session.Run(ctx)

	c.registry.Unregister(session)
	if c.metrics != nil {
		c.metrics.RecordConnectorEvent(serverID, "disconnected")
	}
	if cleared, err := c.registry.SweepServer(context.Background(), serverID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "adopt",
			"serverID": serverID,
			"error":    err,
		}).Error("failed to sweep session locks after disconnect")
	} else if cleared > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "adopt",
			"serverID": serverID,
			"cleared":  cleared,
		}).Info("released session locks held by disconnected server")
	}
}

// dialRetryConfig mirrors the teacher's NetworkRetryConfig but honors the
// reconnect bounds from Config instead of the package defaults, and never
// stops attempting when ReconnectMaxAttempts is 0.
func dialRetryConfig(cfg *config.Config) retry.RetryConfig {
	rc := retry.NetworkRetryConfig()
	rc.InitialDelay = cfg.ReconnectDelay
	rc.MaxDelay = cfg.ReconnectDelayMax
	if cfg.ReconnectMaxAttempts > 0 {
		rc.MaxAttempts = cfg.ReconnectMaxAttempts
	} else {
		rc.MaxAttempts = 1 << 30 // effectively unlimited, bounded by ctx cancellation
	}
	return rc
}

// dialLoop keeps one configured game server connected, reconnecting with
// exponential backoff behind a circuit breaker whenever the session drops.
func (c *Connector) dialLoop(ctx context.Context, target config.GameServerDialTarget) {
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("connector-dial:" + target.URL))
	retrier := retry.NewRetrier(dialRetryConfig(c.cfg))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var conn wsConn
		err := retrier.Execute(ctx, func(ctx context.Context) error {
			return breaker.Execute(ctx, func(ctx context.Context) error {
				dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ReconnectTimeout)
				defer cancel()
				var dialErr error
				conn, dialErr = dialGameServer(dialCtx, target)
				return dialErr
			})
		})
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordReconnectAttempt(target.URL)
			}
			logrus.WithFields(logrus.Fields{
				"function": "dialLoop",
				"target":   target.URL,
				"error":    err,
			}).Warn("failed to connect to game server, will retry")
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}

		// The dial target's own token resolves to the same GameServer row
		// the reverse listener would see, so both orientations key a
		// session under the same canonical serverId (§4.1, §6.1).
		server, outcome, resolveErr := c.registry.ResolveToken(ctx, target.Token)
		if resolveErr != nil || outcome != registry.TokenOK {
			logrus.WithFields(logrus.Fields{
				"function": "dialLoop",
				"target":   target.URL,
				"outcome":  outcome,
				"error":    resolveErr,
			}).Error("dialed game server's token did not resolve to an active GameServer row")
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}

		c.adopt(ctx, conn, server.ServerID)
	}
}
