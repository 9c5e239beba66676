// Package server coordinates client registration, action dispatch, and
// connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/groupchat/internal/chat"
)

// Hub is the WebSocket transport adapter. Its Run loop is the single
// goroutine that reports connects, disconnects and actions to the chat
// router, and it implements chat.Transport by queueing frames on each
// client's buffered send channel.
type Hub struct {
	clients    map[chat.SessionID]*Client
	register   chan *Client
	unregister chan *Client
	actions    chan inboundAction
	router     *chat.Router
	upgrader   websocket.Upgrader
	cfg        Config
	log        *slog.Logger
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

type inboundAction struct {
	client *Client
	action chat.Action
}

// Stats is a point-in-time view of the roster size.
type Stats struct {
	Sessions int `json:"sessions"`
	Joined   int `json:"joined"`
}

// NewHub creates a Hub with its own registry and router. Call Run in a
// separate goroutine before serving connections.
func NewHub(cfg Config, log *slog.Logger, metrics *Metrics) *Hub {
	cfg = sanitizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[chat.SessionID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		actions:    make(chan inboundAction),
		cfg:        cfg,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}

	opts := []chat.Option{chat.WithLogger(log), chat.WithLimits(cfg.Limits())}
	if metrics != nil {
		opts = append(opts, chat.WithObserver(metrics))
	}
	h.router = chat.NewRouter(chat.NewRegistry(), h, opts...)
	return h
}

// Send queues a frame for the session without blocking.
func (h *Hub) Send(id chat.SessionID, frame []byte) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[id]
	if !exists || client.closed {
		return fmt.Errorf("send to %s: %w", id, ErrClientGone)
	}

	select {
	case client.send <- frame:
		return nil
	default:
		return fmt.Errorf("send to %s: %w", id, ErrSendBufferFull)
	}
}

// Close removes the client and closes its send channel, which makes the
// write pump send a close frame and tear the connection down.
func (h *Hub) Close(id chat.SessionID) {
	h.mutex.Lock()
	client, exists := h.clients[id]
	if exists {
		delete(h.clients, id)
		client.closed = true
	}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if !exists {
		return
	}
	// Close the channel after releasing the lock
	close(client.send)
	h.log.Debug("client removed", "session", id, "addr", client.addr, "clients", clientCount)
}

// Stats reports the current number of sessions and joined sessions.
func (h *Hub) Stats() Stats {
	registry := h.router.Registry()
	return Stats{Sessions: registry.Len(), Joined: registry.BoundLen()}
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.router.OnDisconnect(client.id)
			h.Close(client.id)

		case in := <-h.actions:
			h.router.OnAction(in.client.id, in.action)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	_, duplicate := h.clients[client.id]
	if !duplicate {
		h.clients[client.id] = client
	}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if duplicate {
		h.log.Error("duplicate session id from transport; dropping new connection", "session", client.id, "addr", client.addr)
		client.closeConnection()
		return
	}

	if err := h.router.OnConnect(client.id); err != nil {
		h.mutex.Lock()
		delete(h.clients, client.id)
		h.mutex.Unlock()
		client.closeConnection()
		return
	}
	h.log.Info("client registered", "session", client.id, "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// submit hands an action to the Run loop. It gives up once the hub stops.
func (h *Hub) submit(client *Client, action chat.Action) {
	select {
	case h.actions <- inboundAction{client: client, action: action}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ServeWS upgrades the request to a WebSocket and registers the client; the
// hub launches the pump goroutines.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.closeConnection()
	}
}

// shutdownClients closes every live connection. The read pumps then fail
// and exit on their own.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the Run loop and waits for all client goroutines to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
