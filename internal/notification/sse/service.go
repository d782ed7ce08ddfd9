// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/logger"
)

// EventType represents different types of SSE events.
type EventType string

const (
	EventHotLead           EventType = "hot_lead_detected"
	EventLeadAssigned      EventType = "lead_assigned"
	EventCampaignCompleted EventType = "campaign_completed"
	EventImportCompleted   EventType = "import_completed"
	EventInAppNotification EventType = "in_app_notification"
)

// Event represents an SSE event payload.
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client.
type client struct {
	userID uuid.UUID
	events chan Event
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> connections
	log     *logger.Logger
}

// New creates a new SSE service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}

	close(c.events)
}

// Publish sends an event to a specific user's open connections.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := s.clients[userID]
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "user_id", userID, "type", event.Type)
		}
	}
}

// Broadcast sends an event to every connected user.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	userIDs := make([]uuid.UUID, 0, len(s.clients))
	for userID := range s.clients {
		userIDs = append(userIDs, userID)
	}
	s.mu.RUnlock()

	for _, userID := range userIDs {
		s.Publish(userID, event)
	}
}

// Handler returns a Gin handler that upgrades the request into a long-lived
// SSE stream for the authenticated agent.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}
		userID := identity.UserID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "user_id", userID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "user_id", userID)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service, closing all open streams.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
