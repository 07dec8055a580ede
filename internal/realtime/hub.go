// Package realtime fans task events out to every connected websocket session.
// The hub applies no per-recipient filtering: clients decide relevance
// themselves (see internal/client/state).
package realtime

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/events"
)

// Hub manages websocket clients and message broadcasting.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Bind subscribes the hub to the event bus. Returns the unsubscribe function.
func (h *Hub) Bind(bus events.Bus) func() {
	return bus.Subscribe(func(ev events.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.WithError(err).Warn("marshal broadcast event failed")
			return
		}
		select {
		case h.broadcast <- data:
		default:
			h.logger.Warn("broadcast queue full, dropping event")
		}
	})
}

// Run is the hub's main loop; it owns the clients map. Blocks until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			h.clients = make(map[*Client]struct{})
			close(h.done)
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.WithField("clients", len(h.clients)).Debug("websocket client connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// slow consumer, drop it
					delete(h.clients, c)
					c.close()
				}
			}
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}
