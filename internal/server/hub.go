// Package server exposes matches over WebSocket and reports liveness over gRPC.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/towerclash/towerclash-server/internal/game"
)

// Config tunes the WebSocket transport.
type Config struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	SendBuffer     int
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 * 1024
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return c
}

// Lobby is what the transport needs from the match registry.
type Lobby interface {
	FindMatch(playerID, name string) error
	LeaveQueue(playerID string) bool
	ConfirmMatch(playerID, matchID string) error
	StartSolo(playerID, name string) (string, error)
	Dispatch(playerID, matchID string, in game.Intent) error
	Disconnect(playerID string)
}

// Connected is sent to every new connection.
type Connected struct {
	PlayerID string `json:"playerId"`
}

// Hub tracks connected clients by player id and delivers outbound messages.
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	lobby    Lobby
	upgrader websocket.Upgrader
	cfg      Config
	logger   *zap.Logger
}

// NewHub creates a new hub. Attach a lobby before serving.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	h := &Hub{
		clients: make(map[string]*Client),
		cfg:     cfg,
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Attach sets the lobby that inbound messages are routed to.
func (h *Hub) Attach(l Lobby) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lobby = l
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and registers a client with a fresh player id.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		hub:  h,
	}
	h.register(c)
	h.Send(c.id, game.Envelope{Type: game.MsgConnected, Data: Connected{PlayerID: c.id}})

	go c.writePump()
	go c.readPump()
}

// Send implements game.Notifier. It never blocks; a client whose buffer is
// full is disconnected.
func (h *Hub) Send(playerID string, msg game.Envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[playerID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("client send buffer full, dropping connection", zap.String("player_id", playerID))
		_ = c.conn.Close()
	}
}

// ConnectedCount returns the number of live connections.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("client connected", zap.String("player_id", c.id))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	lobby := h.lobby
	h.mu.Unlock()

	if !ok {
		return
	}
	h.logger.Info("client disconnected", zap.String("player_id", c.id))
	if lobby != nil {
		lobby.Disconnect(c.id)
	}
}

func (h *Hub) currentLobby() Lobby {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lobby
}
