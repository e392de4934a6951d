package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one connected websocket subscriber. Outbound messages queue in
// a bounded, mutex-protected FIFO rather than a raw channel so a full
// queue can drop its oldest entry instead of the newest: a reconnecting
// slow client still sees the latest state quickly.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}

	// send exists only so the hub's unregister path has something to
	// close to signal the writePump to exit; actual messages travel
	// through queue/notify.
	send chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		notify: make(chan struct{}, 1),
		send:   make(chan struct{}),
	}
}

// deliver enqueues msg for this client, dropping the oldest queued
// message first if the queue is already at capacity.
func (c *Client) deliver(msg []byte) {
	c.mu.Lock()
	if len(c.queue) >= clientSendBuffer {
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *Client) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	return out
}

// ServeWS upgrades an HTTP connection to a websocket, replays recent
// history, then registers the client for live events. This is the one
// HTTP-shaped surface in the broadcast package; everything else operates
// on typed domain.Event values.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)

	for _, event := range h.recent() {
		if err := conn.WriteJSON(event); err != nil {
			log.Warn().Err(err).Msg("history replay interrupted")
			conn.Close()
			return
		}
	}

	h.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
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
		case _, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
		case <-c.notify:
			for _, msg := range c.drain() {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
