package connector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/metrics"
	"goldbox-rpg/pkg/syncengine"
)

// sendTimeout bounds how long Session waits to hand a reply to a slow
// writer before dropping it, mirroring the teacher's safeSendMessage
// pattern for bounded, non-blocking delivery.
const sendTimeout = 5 * time.Second

const sendBufferSize = 64

// Session owns one live WebSocket connection to a game server, regardless
// of which side dialed it. It implements registry.Connection so the
// Registry and sweeper can inspect and close it without reaching into
// Connector internals.
type Session struct {
	conn      wsConn
	serverID  string
	sessionID string
	engine    *syncengine.Engine
	metrics   *metrics.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps an already-authenticated WebSocket connection. sessionID
// is a fresh correlation id distinguishing this connection from any prior or
// future one for the same serverID, e.g. across a reconnect.
func NewSession(conn wsConn, serverID string, engine *syncengine.Engine, m *metrics.Metrics) *Session {
	return &Session{
		conn:      conn,
		serverID:  serverID,
		sessionID: uuid.NewString(),
		engine:    engine,
		metrics:   m,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// ServerID implements registry.Connection.
func (s *Session) ServerID() string { return s.serverID }

// Close implements registry.Connection; safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Run drives the session until the connection closes or ctx is canceled.
// It blocks; callers run it in its own goroutine per session.
func (s *Session) Run(ctx context.Context) {
	writeDone := make(chan struct{})
	go func() {
		s.writeLoop()
		close(writeDone)
	}()
	s.readLoop(ctx)
	close(s.send)
	<-writeDone
	_ = s.Close()
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":  "writeLoop",
					"serverID":  s.serverID,
					"sessionID": s.sessionID,
					"error":     err,
				}).Warn("failed writing to connector session")
				return
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "readLoop",
				"serverID":  s.serverID,
				"sessionID": s.sessionID,
				"error":     err,
			}).Info("connector session closed")
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.safeSend(errorEnvelope("", err))
			continue
		}

		reply := s.dispatch(ctx, env)
		s.safeSend(reply)
	}
}

// safeSend attempts a non-blocking-with-timeout send, dropping the message
// and logging a warning if the session's write side is backed up.
func (s *Session) safeSend(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	select {
	case s.send <- data:
	case <-time.After(sendTimeout):
		logrus.WithFields(logrus.Fields{
			"function":  "safeSend",
			"serverID":  s.serverID,
			"sessionID": s.sessionID,
		}).Warn("dropped reply: session send buffer full")
	case <-s.done:
	}
}
