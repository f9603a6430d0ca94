package connector

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/registry"
	"goldbox-rpg/pkg/syncerr"
)

// upgrader configures the reverse-listener WebSocket upgrade. Origin
// checking is relaxed only in dev mode (§6.1): game servers are backend
// processes, not browsers, so production traffic never carries an Origin
// header worth checking against a fixed allowlist.
func newUpgrader(devMode bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return devMode || r.Header.Get("Origin") == ""
		},
	}
}

// ListenerHandler returns the HTTP handler game servers unable to accept an
// outbound dial from us connect to instead: they open the WebSocket
// upgrade themselves, authenticating with ?token= (§6.1 reverse
// orientation).
func (c *Connector) ListenerHandler() http.Handler {
	upgrader := newUpgrader(c.devMode)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		server, outcome, err := c.registry.ResolveToken(r.Context(), token)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if outcome != registry.TokenOK {
			authErr := &syncerr.UnauthenticatedError{Reason: "token did not resolve to an active game server"}
			logrus.WithFields(logrus.Fields{
				"function": "ListenerHandler",
				"outcome":  outcome,
			}).Warn(authErr.Error())
			http.Error(w, authErr.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "ListenerHandler",
				"serverID": server.ServerID,
				"error":    err,
			}).Warn("failed to upgrade reverse listener connection")
			return
		}

		c.adopt(r.Context(), conn, server.ServerID)
	})
}
