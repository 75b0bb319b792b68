package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/observability"
	"esports-predictor/internal/refresh"
)

// Websocket message types.
const (
	MessagePredictions = "predictions"
	MessageSubscribed  = "subscribed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Message is pushed to websocket clients.
type Message struct {
	Type        string               `json:"type"`
	RunID       string               `json:"run_id,omitempty"`
	Timestamp   int64                `json:"timestamp"`
	PlayerIDs   []string             `json:"player_ids,omitempty"`
	Predictions []*domain.Prediction `json:"predictions,omitempty"`
}

// clientRequest is sent by clients to narrow what they receive.
type clientRequest struct {
	Type      string   `json:"type"` // subscribe | unsubscribe
	PlayerIDs []string `json:"player_ids"`
}

type reply struct {
	client  *Client
	payload []byte
}

// Client is one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	players map[string]bool // empty: everything
}

// Hub fans committed prediction batches out to websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	reply      chan reply
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	mu    sync.RWMutex
	count int
}

var _ refresh.Listener = (*Hub)(nil)

// NewHub creates a Hub. allowedOrigins empty accepts any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		reply:      make(chan reply),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Run serves register, unregister and broadcast until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount()
			h.logger.Debug("client registered", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Debug("client unregistered", zap.Int("clients", len(h.clients)))
			}

		case r := <-h.reply:
			if h.clients[r.client] {
				select {
				case r.client.send <- r.payload:
				default:
				}
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				payload, ok := c.render(msg)
				if !ok {
					continue
				}
				select {
				case c.send <- payload:
				default:
					h.logger.Warn("client too slow, dropping")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
	observability.SetWebsocketClients(len(h.clients))
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// PredictionsCommitted queues the batch for every client. A full queue
// drops the batch rather than blocking the refresh cycle.
func (h *Hub) PredictionsCommitted(_ context.Context, run *domain.RefreshRun, predictions []*domain.Prediction) error {
	msg := &Message{
		Type:        MessagePredictions,
		RunID:       run.RunID,
		Timestamp:   run.FinishedAtMs,
		Predictions: predictions,
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, batch not pushed", zap.String("run_id", run.RunID))
	}
	return nil
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), players: map[string]bool{}}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Websocket serves /ws.
func (h *Handler) Websocket(w http.ResponseWriter, r *http.Request) {
	if h.opts.Hub == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "websocket not configured")
		return
	}
	h.opts.Hub.ServeWS(w, r)
}

// render encodes msg for the client, keeping only fixtures of subscribed
// players. ok is false when nothing is left to send.
func (c *Client) render(msg *Message) ([]byte, bool) {
	c.mu.Lock()
	out := msg
	if len(c.players) > 0 {
		filtered := *msg
		filtered.Predictions = nil
		for _, p := range msg.Predictions {
			if c.players[p.HomePlayer.ID] || c.players[p.AwayPlayer.ID] {
				filtered.Predictions = append(filtered.Predictions, p)
			}
		}
		out = &filtered
	}
	c.mu.Unlock()

	if out.Type == MessagePredictions && len(out.Predictions) == 0 {
		return nil, false
	}
	b, err := json.Marshal(out)
	if err != nil {
		c.hub.logger.Error("marshal websocket message failed", zap.Error(err))
		return nil, false
	}
	return b, true
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	var req clientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.logger.Debug("bad client message", zap.Error(err))
		return
	}

	c.mu.Lock()
	switch req.Type {
	case "subscribe":
		c.players = make(map[string]bool, len(req.PlayerIDs))
		for _, id := range req.PlayerIDs {
			c.players[id] = true
		}
	case "unsubscribe":
		c.players = map[string]bool{}
	default:
		c.mu.Unlock()
		return
	}
	ack := Message{Type: MessageSubscribed, Timestamp: time.Now().UnixMilli(), PlayerIDs: req.PlayerIDs}
	c.mu.Unlock()

	b, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case c.hub.reply <- reply{client: c, payload: b}:
	case <-c.hub.done:
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
