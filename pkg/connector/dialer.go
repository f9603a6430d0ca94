package connector

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"goldbox-rpg/pkg/config"
)

// wsConn is the subset of *websocket.Conn a Session needs, narrow enough to
// substitute a fake in tests without dialing a real socket.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// dialGameServer opens an outbound WebSocket connection to target,
// presenting its configured token as a Bearer credential (§6.1 outbound
// orientation).
func dialGameServer(ctx context.Context, target config.GameServerDialTarget) (wsConn, error) {
	header := make(map[string][]string)
	header["Authorization"] = []string{"Bearer " + target.Token}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target.URL, err)
	}
	return conn, nil
}
