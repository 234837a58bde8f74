// Package hub fans price updates out to websocket subscribers. Each client
// receives only the symbols it subscribed to.
package hub

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Broadcaster is what the price cycle needs from a fan-out layer.
type Broadcaster interface {
	Symbols() []string
	Broadcast(prices map[string]float64)
}

// Message types exchanged with clients.
const (
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeSubscribed   = "subscription_confirmed"
	TypeUnsubscribed = "unsubscription_confirmed"
	TypePriceUpdate  = "price_update"
	TypeError        = "error"
)

// Request is a client command.
type Request struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// Confirmation acknowledges a subscription change.
type Confirmation struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PriceUpdate is pushed to a client on every broadcast that touches one of
// its symbols.
type PriceUpdate struct {
	Type      string             `json:"type"`
	Data      map[string]float64 `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// Hub is the subscription registry.
type Hub struct {
	Clock func() time.Time

	mu          sync.RWMutex
	clients     map[*Client]map[string]struct{}
	subscribers map[string]map[*Client]struct{}
	logger      *zap.Logger
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		Clock:       time.Now,
		clients:     make(map[*Client]map[string]struct{}),
		subscribers: make(map[string]map[*Client]struct{}),
		logger:      logger.With(zap.String("component", "hub")),
	}
}

// Register adds a client with no subscriptions.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = make(map[string]struct{})
	}
}

// Unregister removes the client and all of its subscriptions, then closes
// its send queue. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	symbols, ok := h.clients[c]
	if !ok {
		return
	}
	for s := range symbols {
		h.dropSubscriberLocked(s, c)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) dropSubscriberLocked(symbol string, c *Client) {
	subs := h.subscribers[symbol]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.subscribers, symbol)
	}
}

// Subscribe adds symbols to the client's set.
func (h *Hub) Subscribe(c *Client, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c]
	if !ok {
		return
	}
	for _, s := range symbols {
		if s == "" {
			continue
		}
		set[s] = struct{}{}
		if h.subscribers[s] == nil {
			h.subscribers[s] = make(map[*Client]struct{})
		}
		h.subscribers[s][c] = struct{}{}
	}
}

// Unsubscribe removes symbols from the client's set.
func (h *Hub) Unsubscribe(c *Client, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c]
	if !ok {
		return
	}
	for _, s := range symbols {
		delete(set, s)
		h.dropSubscriberLocked(s, c)
	}
}

// Symbols lists every symbol with at least one subscriber, sorted.
func (h *Hub) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subscribers))
	for s := range h.subscribers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a price_update for every client subscribed to at least
// one of the given symbols. Clients whose queue is full are dropped.
func (h *Hub) Broadcast(prices map[string]float64) {
	if len(prices) == 0 {
		return
	}
	now := h.Clock()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c, symbols := range h.clients {
		data := make(map[string]float64)
		for s := range symbols {
			if p, ok := prices[s]; ok {
				data[s] = p
			}
		}
		if len(data) == 0 {
			continue
		}
		payload, err := json.Marshal(PriceUpdate{Type: TypePriceUpdate, Data: data, Timestamp: now})
		if err != nil {
			h.logger.Error("marshal price update", zap.Error(err))
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("client queue full, dropping", zap.String("client", c.id))
			h.removeLocked(c)
		}
	}
}

// handle applies one client request and returns the reply.
func (h *Hub) handle(c *Client, raw []byte) Confirmation {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Confirmation{Type: TypeError, Error: "malformed message"}
	}
	switch req.Type {
	case TypeSubscribe:
		h.Subscribe(c, req.Symbols)
		return Confirmation{Type: TypeSubscribed, Symbols: req.Symbols}
	case TypeUnsubscribe:
		h.Unsubscribe(c, req.Symbols)
		return Confirmation{Type: TypeUnsubscribed, Symbols: req.Symbols}
	default:
		return Confirmation{Type: TypeError, Error: "unknown message type " + req.Type}
	}
}
