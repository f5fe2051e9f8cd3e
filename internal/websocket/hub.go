package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medintake-be/internal/constant"
	"medintake-be/internal/pkg/logger"
)

const clusterChannel = "intake_live"

// LiveUpdate is the payload pushed to observers of an interview session
// after every accepted turn.
type LiveUpdate struct {
	SessionId  string `json:"session_id"`
	Reply      string `json:"reply"`
	Emotion    string `json:"emotion"`
	Sufficient bool   `json:"sufficient"`
	Completed  bool   `json:"completed"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
}

// Hub fans live interview updates out to websocket observers, typically the
// clinic dashboard watching an interview in progress. Observers are keyed by
// session id; Redis pub/sub relays updates across backend instances.
type Hub struct {
	// session id -> observers (a session can be watched from several screens)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client

	// instanceID marks messages this hub published to the cluster channel
	// so the subscriber can skip its own echoes.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionId] = append(h.clients[client.SessionId], client)
			h.mu.Unlock()
			h.logger.Info(constant.ModuleHub, "Observer registered", map[string]interface{}{"session_id": client.SessionId})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionId]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionId] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionId]) == 0 {
					delete(h.clients, client.SessionId)
					h.logger.Info(constant.ModuleHub, "Session fully unobserved", map[string]interface{}{"session_id": client.SessionId})
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendUpdate pushes a turn update to every observer of the session, local
// and remote.
func (h *Hub) SendUpdate(update LiveUpdate) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "turn_update",
		"data": update,
	})

	h.deliverLocal(update.SessionId, data)

	// Relay to other instances
	if h.rdb != nil {
		payload := map[string]interface{}{
			"origin":     h.instanceID,
			"session_id": update.SessionId,
			"message":    data,
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), clusterChannel, jsonPayload)
	}
}

func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.RLock()
	clients, found := h.clients[sessionID]
	h.mu.RUnlock()

	if !found {
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// Run owns the channel close.
			h.logger.Warn(constant.ModuleHub, "Observer send buffer full, dropping connection", map[string]interface{}{"session_id": sessionID})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	// All instances share one channel carrying {session_id, message}; each
	// instance delivers only to sessions it has local observers for.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		h.handleClusterMessage([]byte(msg.Payload))
	}
}

func (h *Hub) handleClusterMessage(raw []byte) {
	var payload struct {
		Origin    string          `json:"origin"`
		SessionId string          `json:"session_id"`
		Message   json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Redis msg parse error: %v", err)
		return
	}

	// Our own publish comes back on the channel too; local observers were
	// already served by SendUpdate.
	if payload.Origin == h.instanceID {
		return
	}

	h.deliverLocal(payload.SessionId, payload.Message)
}
