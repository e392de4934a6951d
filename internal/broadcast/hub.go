// Package broadcast implements the event bus (C10): a Hub fans out typed
// domain.Event messages to every connected websocket client, replaying
// recent history to new connections before switching them to live ticks.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/domain"
)

const (
	clientSendBuffer = 256
	defaultHistory   = 200
)

// Hub owns the set of connected clients and serializes every published
// event once before fanning it out.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan domain.Event

	history *ring
}

// NewHub builds a Hub that retains up to historySize recent events for
// replay to newly connected clients (0 uses the default).
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistory
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan domain.Event, 64),
		history:    newRing(historySize),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("broadcast client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("broadcast client disconnected")
		case event := <-h.publish:
			h.history.push(event)
			msg, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to encode event for broadcast")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				client.deliver(msg)
			}
			h.mu.Unlock()
		}
	}
}

// Publish fans event out to every connected client. It never blocks on a
// slow client: per-client delivery is non-blocking with a drop-oldest
// policy (see Client.deliver).
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	select {
	case h.publish <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recent returns every event held in the history ring (at most its
// capacity), oldest first, for history replay to a newly connected client.
func (h *Hub) recent() []domain.Event {
	return h.history.all()
}
