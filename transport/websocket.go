// Package transport adapts client sockets to the hub transport contract.
package transport

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"restaurant-hub/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Conn is one websocket client. Frames are queued and written by a single
// writer goroutine, so Send never blocks the dispatcher.
type Conn struct {
	id        string
	ws        *websocket.Conn
	log       *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writer    sync.WaitGroup
}

func NewConn(ws *websocket.Conn, log *slog.Logger, bufferSize int) *Conn {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		log:  log,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues a frame. A closed connection or a full queue refuses it.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: %s", errors.ErrTransportGone, c.id)
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: send queue of %s is full", errors.ErrTransportGone, c.id)
	}
}

// Close stops the writer, which says goodbye to the peer and closes the
// socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Serve runs the pumps until the peer leaves or the connection is closed.
// Every inbound text frame goes to onFrame, in arrival order. onAlive is
// called on each pong.
func (c *Conn) Serve(onFrame func(frame []byte), onAlive func()) error {
	c.writer.Add(1)
	go c.writePump()
	defer func() {
		_ = c.Close()
		c.writer.Wait()
	}()
	return c.readPump(onFrame, onAlive)
}

func (c *Conn) readPump(onFrame func(frame []byte), onAlive func()) error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		onAlive()
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("Websocket read failed", "connection_id", c.id, "error", err)
				return err
			}
			return nil
		}
		if kind != websocket.TextMessage {
			continue
		}
		onFrame(data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.writer.Done()
	}()

	for {
		select {
		case <-c.done:
			c.drain()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Websocket write failed", "connection_id", c.id, "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// drain flushes what was queued before the close, replies included.
func (c *Conn) drain() {
	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
