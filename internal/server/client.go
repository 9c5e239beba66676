// Package server manages individual WebSocket clients, handling read/write
// pumps and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/groupchat/internal/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one WebSocket connection, identified by a fresh session id.
type Client struct {
	id           chat.SessionID
	conn         *websocket.Conn
	send         chan []byte
	hub          *Hub
	addr         string
	closed       bool
	maxFrameSize int64
}

// NewClient creates a Client with a new session id. The send channel is
// buffered so that fan-out never waits on a slow connection.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	maxFrameSize := int64(hub.cfg.MaxFrameSize)
	if conn != nil {
		conn.SetReadLimit(maxFrameSize)
	}

	return &Client{
		id:           chat.SessionID(uuid.NewString()),
		conn:         conn,
		send:         make(chan []byte, hub.cfg.SendBufferSize),
		hub:          hub,
		addr:         addr,
		maxFrameSize: maxFrameSize,
	}
}

// ID returns the client's session id.
func (c *Client) ID() chat.SessionID {
	return c.id
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	log := c.hub.log
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn("setting initial read deadline", "addr", c.addr, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Warn("setting read deadline in pong handler", "addr", c.addr, "err", err)
		}
		return nil
	})
}

// logReadError logs why the read loop is ending.
func (c *Client) logReadError(err error) {
	log := c.hub.log.With("session", c.id, "addr", c.addr)

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("frame exceeded maximum size", "limit", c.maxFrameSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Debug("client disconnected", "err", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Debug("client connection closed", "err", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		log.Warn("unexpected WebSocket close", "err", err)
	default:
		log.Warn("WebSocket read error", "err", err)
	}
}

// processFrame decodes one inbound frame and hands the action to the hub.
// Malformed frames are dropped and the connection stays open.
func (c *Client) processFrame(frame []byte) bool {
	action, err := chat.DecodeAction(frame)
	if err != nil {
		c.hub.log.Debug("ignoring invalid frame", "session", c.id, "addr", c.addr, "err", err)
		return false
	}

	c.hub.submit(c, action)
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		c.processFrame(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		return c.handleFrame(frame, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.hub.log.Debug("closing connection", "addr", c.addr, "err", err)
	}
}

// handleFrame writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.hub.log.Warn("setting write deadline", "addr", c.addr, "err", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.hub.log.Warn("writing frame", "session", c.id, "addr", c.addr, "err", err)
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !isExpectedCloseError(err) {
		c.hub.log.Debug("writing close message", "addr", c.addr, "err", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.hub.log.Warn("setting write deadline for ping", "addr", c.addr, "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.hub.log.Debug("writing ping", "addr", c.addr, "err", err)
		return false
	}
	return true
}
