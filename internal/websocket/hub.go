package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"geoassist-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// AllUsers is the target of gateway connections: they receive the replies of
// every chat user.
const AllUsers = "*"

type envelope struct {
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

// Hub fans bot replies out to connected reply streams. With redis configured
// every instance publishes to the shared channel and delivers what it reads
// back, so a gateway connected to any instance receives every reply.
type Hub struct {
	// target user id -> connections (AllUsers for gateways)
	clients map[string][]*Client
	mu      sync.RWMutex

	rdb     *redis.Client
	channel string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, channel string, log logger.ILogger) *Hub {
	return &Hub{
		clients: make(map[string][]*Client),
		rdb:     rdb,
		channel: channel,
		logger:  log,
	}
}

// Run consumes the redis channel until ctx is done. Without redis it only
// waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("Hub", "Dropping malformed reply envelope", map[string]interface{}{"error": err.Error()})
				continue
			}
			h.Deliver(env.TargetUserID, env.Message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.Target] = append(h.clients[client.Target], client)
	h.mu.Unlock()
	h.logger.Info("Hub", "Client registered", map[string]interface{}{"target": client.Target})
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.Target]
	for i, c := range clients {
		if c == client {
			h.clients[client.Target] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.Target]) == 0 {
		delete(h.clients, client.Target)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"target": client.Target})
	}
}

// Publish routes a reply for userID through redis when available, otherwise
// straight to local connections.
func (h *Hub) Publish(ctx context.Context, userID string, data []byte) error {
	if h.rdb == nil {
		h.Deliver(userID, data)
		return nil
	}
	payload, err := json.Marshal(envelope{TargetUserID: userID, Message: data})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, h.channel, payload).Err()
}

// Deliver hands data to the local connections of userID and to every
// gateway connection. Slow connections lose the message rather than block
// the hub.
func (h *Hub) Deliver(userID string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	targets := [][]*Client{h.clients[userID]}
	if userID != AllUsers {
		targets = append(targets, h.clients[AllUsers])
	}
	for _, clients := range targets {
		for _, client := range clients {
			select {
			case client.Send <- data:
				delivered++
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"target": client.Target})
			}
		}
	}
	return delivered
}

// Connections counts the open reply streams.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}
