package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openalpha/stakevault/metrics"
	"github.com/openalpha/stakevault/x/vault/types"
)

// Channel names
const (
	ChannelPool   = "pool"
	ChannelEvents = "events"

	accountChannelPrefix = "account:"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by channel
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	// Register/unregister requests
	register   chan *Client
	unregister chan *Client

	// Channel subscription requests
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	// Engine events queued for fan-out
	events chan types.Event

	// Latest pool snapshot, broadcast on a fixed cadence
	poolBuffer *PoolMessage

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Configuration
	config *HubConfig

	// Shutdown signal for the run loop
	done chan struct{}
}

// HubConfig contains hub configuration
type HubConfig struct {
	// Pool snapshot broadcast interval
	PoolInterval time.Duration

	// Connection limits
	MaxSubscriptions int

	// Rate limiting
	MessageRateLimit int // Messages per second per client

	// Event queue depth; events beyond it are dropped
	EventBuffer int
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		PoolInterval:     time.Second,
		MaxSubscriptions: 16,
		MessageRateLimit: 100,
		EventBuffer:      256,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
	Action  string // "subscribe" or "unsubscribe"
}

// NewHub creates a new Hub
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		events:      make(chan types.Event, config.EventBuffer),
		config:      config,
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	poolTicker := time.NewTicker(h.config.PoolInterval)
	defer poolTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)

		case event := <-h.events:
			h.broadcastEvent(event)

		case <-poolTicker.C:
			h.broadcastPool()

		case <-h.done:
			return
		}
	}
}

// Stop terminates the run loop
func (h *Hub) Stop() {
	close(h.done)
}

// Emit queues an engine event for fan-out. The hub never blocks the engine:
// when the queue is full the event is dropped.
func (h *Hub) Emit(event types.Event) {
	select {
	case h.events <- event:
	default:
	}
}

// registerClient adds a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	metrics.GetCollector().RecordWSConnection(1)
}

// unregisterClient removes a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		// Remove from all channels
		for channel, clients := range h.channels {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}

		close(client.send)
		metrics.GetCollector().RecordWSConnection(-1)
	}
}

// handleSubscription handles a subscription request
func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true

	// Send subscription confirmation
	confirmation := &WSMessage{
		Type:    "subscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.Send(data)
}

// handleUnsubscription handles an unsubscription request
func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}

	// Send unsubscription confirmation
	confirmation := &WSMessage{
		Type:    "unsubscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.Send(data)
}

// BroadcastToChannel sends a message to all clients subscribed to a channel
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Make a copy of clients to avoid holding lock during send
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	for _, client := range clientList {
		client.Send(data)
	}
	metrics.GetCollector().RecordWSMessage(channel)
}

// ============ Channel-specific broadcasts ============

// broadcastEvent fans an engine event out to the firehose channel and, when
// the event names an affected account, to that account's channel.
func (h *Hub) broadcastEvent(event types.Event) {
	msg := &WSMessage{
		Type:    event.Type,
		Channel: ChannelEvents,
		Data:    event,
	}
	h.BroadcastToChannel(ChannelEvents, msg)

	for _, key := range []string{"depositor", "withdrawer", "funder"} {
		address, ok := event.Attributes[key]
		if !ok || address == "" {
			continue
		}
		channel := accountChannelPrefix + address
		h.BroadcastToChannel(channel, &WSMessage{
			Type:    event.Type,
			Channel: channel,
			Data:    event,
		})
	}
}

// UpdatePool updates the buffered pool snapshot
func (h *Hub) UpdatePool(pool *PoolMessage) {
	h.mu.Lock()
	h.poolBuffer = pool
	h.mu.Unlock()
}

// PoolSnapshot returns the buffered pool snapshot, or nil before the first
// update.
func (h *Hub) PoolSnapshot() *PoolMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.poolBuffer
}

// broadcastPool broadcasts the buffered pool snapshot
func (h *Hub) broadcastPool() {
	h.mu.RLock()
	pool := h.poolBuffer
	h.mu.RUnlock()

	if pool == nil {
		return
	}
	msg := &WSMessage{
		Type:    "pool",
		Channel: ChannelPool,
		Data:    pool,
	}
	h.BroadcastToChannel(ChannelPool, msg)
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data,omitempty"`
}

// PoolMessage represents a pool snapshot
type PoolMessage struct {
	TotalShares string `json:"total_shares"`
	PoolBalance string `json:"pool_balance"`
	Timestamp   int64  `json:"timestamp"`
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of active channels
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.channels[channel]; ok {
		return len(clients)
	}
	return 0
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = generateID()
	}

	// The address query parameter grants access to that account's channel.
	address := r.URL.Query().Get("address")

	client := NewClient(h, conn, clientID, address)

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Generate a simple ID
func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
