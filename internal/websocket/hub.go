package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gwent-leaderboard/internal/domain"
)

// Message types
const (
	MessageTypeRankings     = "rankings"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Topic is a live ranking feed: one edition seen through one time window
type Topic struct {
	Edition domain.Edition    `json:"edition"`
	Window  domain.TimeWindow `json:"window"`
}

func (t Topic) String() string {
	return string(t.Edition) + "/" + string(t.Window)
}

// ParseTopic validates a subscription request
func ParseTopic(edition, window string) (Topic, error) {
	e, ok := domain.ParseEdition(edition)
	if !ok {
		return Topic{}, &domain.ValidationError{Field: "edition", Reason: "edition \"" + edition + "\" is not supported"}
	}
	w, err := domain.ParseTimeWindow(strings.TrimSpace(window))
	if err != nil {
		return Topic{}, err
	}
	return Topic{Edition: e, Window: w}, nil
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Topic     *Topic      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Subscribed clients by topic
	clients map[Topic]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound messages
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	// Called after a client subscribes so it gets a first snapshot
	onSubscribe func(Topic)

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  Topic
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[Topic]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnSubscribe sets the hook run after each subscription. Call before Run.
func (h *Hub) OnSubscribe(fn func(Topic)) {
	h.onSubscribe = fn
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for topic, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, topic)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			// A queued subscribe can outlive its client; its send channel is closed
			if !h.allClients[req.client] {
				h.mu.Unlock()
				h.logger.Debug("dropping subscribe from unregistered client", "client_id", req.client.id)
				continue
			}
			if _, ok := h.clients[req.topic]; !ok {
				h.clients[req.topic] = make(map[*Client]bool)
			}
			h.clients[req.topic][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "topic", req.topic.String())
			if h.onSubscribe != nil {
				go h.onSubscribe(req.topic)
			}

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.topic]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.topic)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "topic", req.topic.String())

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to every client subscribed to its topic
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	if message.Topic == nil {
		return
	}
	for client := range h.clients[*message.Topic] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastRankings sends a ranked player list to a topic's subscribers
func (h *Hub) BroadcastRankings(topic Topic, players []domain.PlayerRecord) {
	message := &Message{
		Type:      MessageTypeRankings,
		Topic:     &topic,
		Data:      players,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "topic", topic.String())
	}
}

// Topics returns every topic with at least one subscriber
func (h *Hub) Topics() []Topic {
	h.mu.RLock()
	defer h.mu.RUnlock()

	topics := make([]Topic, 0, len(h.clients))
	for topic := range h.clients {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].String() < topics[j].String() })
	return topics
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic Topic) {
	h.subscribe <- &subscriptionRequest{
		client: client,
		topic:  topic,
	}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic Topic) {
	h.unsubscribe <- &subscriptionRequest{
		client: client,
		topic:  topic,
	}
}

// GetSubscriberCount returns the number of subscribers for a topic
func (h *Hub) GetSubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
