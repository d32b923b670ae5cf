// Package session implements the per-connection channel (read pump,
// write pump, back-pressured send queue, close-with-reason), the
// reconnection supervisor, and the single dispatcher mailbox that is
// the sole writer of match state (spec §4.4, §4.10, §5).
package session

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	"preferans/internal/wire"
)

// sendQueueCapacity is the bound on a session's outbound queue; senders
// suspend (not drop) once it fills (spec §4.4).
const sendQueueCapacity = 128

const (
	pingPeriod  = 54 * time.Second
	readTimeout = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Conn is one connected client's channel. The dispatcher only ever
// touches PlayerID, Epoch, and Send; ws is private to the read/write
// pumps, keeping the hub's dispatch logic testable without a real
// socket.
type Conn struct {
	ws   *websocket.Conn
	Send chan []byte

	PlayerID string
	Epoch    int64
}

// NewConn wraps an upgraded websocket connection with a bounded send
// queue (spec §4.4).
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, Send: make(chan []byte, sendQueueCapacity)}
}

// enqueue blocks if the send queue is full: this is the deliberate
// back-pressure suspension point (spec §5), not a silent drop.
func (c *Conn) enqueue(frame []byte) {
	c.Send <- frame
}

// CloseWithReason enqueues a close-with-reason directive; the write
// pump recognizes it and terminates the socket with a policy-violation
// close code (spec §4.4).
func (c *Conn) CloseWithReason(reason string) {
	c.enqueue(wire.EncodeCloseDirective(reason))
}

// ReadPump decodes inbound frames and invokes onFrame for each one. It
// never mutates match state directly — onFrame is expected to enqueue
// the work onto the dispatcher's single mailbox (spec §5). ReadPump
// returns when the connection ends; callers should then notify the
// dispatcher of the disconnect.
func (c *Conn) ReadPump(onFrame func(*Conn, wire.Envelope)) {
	c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("session: read error: %v", err)
			}
			return
		}
		env, err := wire.Unmarshal(raw)
		if err != nil {
			log.Printf("session: dropping malformed frame: %v", err)
			continue
		}
		onFrame(c, env)
	}
}

// WritePump drains the send queue to the socket, translating a
// close-with-reason directive into an actual policy-violation close
// and sending periodic pings to keep the connection alive and detect
// dead peers (spec §4.4, grounded on the teacher's writePump).
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if reason, isClose := wire.IsCloseDirective(frame); isClose {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
				return
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
