// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"verdant-service/internal/pkg/jwt"
	"verdant-service/internal/pkg/session"
)

type EventType string

const (
	EventTypeConnected   EventType = "connected"
	EventTypeForceLogout EventType = "force_logout"
	EventTypeSystemAlert EventType = "system_alert"
)

type Message struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewMessage(eventType EventType, data interface{}) *Message {
	return &Message{Type: eventType, Data: data, Timestamp: time.Now()}
}

type BroadcastMessage struct {
	// UserIDs nil means all connected clients.
	UserIDs []int64
	Message *Message
}

// Hub tracks connected clients by user ID and pushes session lifecycle
// events to them, so a revoked or evicted session learns about it without
// waiting for its next API call to 401.
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	verifier *jwt.Verifier
	sessions *session.Manager
	logger   *zap.Logger
}

func NewHub(verifier *jwt.Verifier, sessions *session.Manager, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		verifier:   verifier,
		sessions:   sessions,
		logger:     logger,
	}
}

// ClientAuth holds the verified identity of a websocket connection.
type ClientAuth struct {
	UserID      int64
	TokenID     string
	Fingerprint string
	Role        string
}

// AuthenticateClient runs the same token and session checks the HTTP
// middleware does, so a websocket cannot outlive its session.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	fingerprint := jwt.Fingerprint(token)
	if _, err := h.sessions.Validate(ctx, fingerprint, claims.ID, session.Meta{}); err != nil {
		return nil, err
	}

	return &ClientAuth{
		UserID:      claims.UserID,
		TokenID:     claims.ID,
		Fingerprint: fingerprint,
		Role:        string(claims.Role),
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.userID),
		zap.String("token_id", client.tokenID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(NewMessage(EventTypeConnected, map[string]interface{}{
		"user_id":  client.userID,
		"token_id": client.tokenID,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}

			h.logger.Info("websocket client disconnected",
				zap.Int64("user_id", client.userID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				client.SendMessage(msg.Message)
			}
		}
		return
	}
	for _, userID := range msg.UserIDs {
		if clients, ok := h.clients[userID]; ok {
			for client := range clients {
				client.SendMessage(msg.Message)
			}
		}
	}
}

// ForceLogout tells the user's connected clients that a session was revoked.
// TokenID scopes the event to one session; empty means all of the user's
// sessions.
func (h *Hub) ForceLogout(userID int64, tokenID string, reason string) {
	h.broadcast <- &BroadcastMessage{
		UserIDs: []int64{userID},
		Message: NewMessage(EventTypeForceLogout, map[string]interface{}{
			"token_id": tokenID,
			"reason":   reason,
		}),
	}
}

// BroadcastSystemAlert pushes an operational notice to every client.
func (h *Hub) BroadcastSystemAlert(message string) {
	h.broadcast <- &BroadcastMessage{
		UserIDs: nil,
		Message: NewMessage(EventTypeSystemAlert, map[string]interface{}{
			"message": message,
		}),
	}
}

func (h *Hub) ConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}
