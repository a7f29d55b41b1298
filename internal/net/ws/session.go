package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"breach/server/internal/lobby"
	"breach/server/internal/net/proto"
	"breach/server/internal/telemetry"
)

const writeWait = 10 * time.Second

// Session serializes all writes to one websocket connection. The read
// loop lives in the handler; the session owns the write side so the
// lobby pump and direct acknowledgements never interleave mid-frame.
type Session struct {
	playerID string
	conn     *websocket.Conn
	logger   telemetry.Logger

	writeMu sync.Mutex

	pumpMu   sync.Mutex
	pumpStop chan struct{}
	pumpDone chan struct{}
}

func newSession(playerID string, conn *websocket.Conn, logger telemetry.Logger) *Session {
	return &Session{playerID: playerID, conn: conn, logger: logger}
}

// Write sends one prepared frame with a bounded deadline.
func (s *Session) Write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Attach starts forwarding a lobby subscription to the socket,
// replacing any previous pump. Events are encoded in order; snapshots
// are latest-wins by construction of the subscription channel.
func (s *Session) Attach(sub *lobby.Subscription) {
	s.Detach()

	stop := make(chan struct{})
	done := make(chan struct{})
	s.pumpMu.Lock()
	s.pumpStop = stop
	s.pumpDone = done
	s.pumpMu.Unlock()

	go s.pump(sub, stop, done)
}

// Detach stops the current lobby pump, if any.
func (s *Session) Detach() {
	s.pumpMu.Lock()
	stop, done := s.pumpStop, s.pumpDone
	s.pumpStop, s.pumpDone = nil, nil
	s.pumpMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Session) pump(sub *lobby.Subscription, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := proto.EncodeEvent(ev)
			if err != nil {
				s.logger.Printf("failed to encode event %s for %s: %v", ev.Type, s.playerID, err)
				continue
			}
			if err := s.Write(data); err != nil {
				return
			}
		case snap := <-sub.Snapshots:
			data, err := proto.EncodeSnapshot(snap)
			if err != nil {
				s.logger.Printf("failed to encode snapshot for %s: %v", s.playerID, err)
				continue
			}
			if err := s.Write(data); err != nil {
				return
			}
		}
	}
}

// Close tears down the pump and the connection.
func (s *Session) Close() {
	s.Detach()
	s.conn.Close()
}
