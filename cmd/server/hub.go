package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/marben/fractscan/internal/wire"
)

// clientBacklog is how many frames a client may fall behind before it is
// disconnected.
const clientBacklog = 4096

type client struct {
	conn *websocket.Conn

	m      sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, clientBacklog)}
}

// queue reports false when the client fell too far behind.
func (c *client) queue(m wire.Message) bool {
	b, err := wire.Marshal(m)
	if err != nil {
		log.Printf("encode %v: %v", m.Type(), err)
		return true
	}
	return c.queueFrame(b)
}

func (c *client) queueFrame(b []byte) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *client) close() {
	c.m.Lock()
	defer c.m.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writeLoop sends queued frames until the queue is closed or ctx ends.
func (c *client) writeLoop(ctx context.Context) error {
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusPolicyViolation, "too slow")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.conn.Write(wctx, websocket.MessageBinary, b)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// hub fans messages out to every connected client.
type hub struct {
	m       sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.m.Lock()
	h.clients[c] = struct{}{}
	h.m.Unlock()
}

func (h *hub) remove(c *client) {
	h.m.Lock()
	delete(h.clients, c)
	h.m.Unlock()
	c.close()
}

func (h *hub) broadcast(m wire.Message) {
	b, err := wire.Marshal(m)
	if err != nil {
		log.Printf("encode %v: %v", m.Type(), err)
		return
	}
	h.m.Lock()
	defer h.m.Unlock()
	for c := range h.clients {
		if !c.queueFrame(b) {
			delete(h.clients, c)
			log.Printf("dropping a client %d frames behind", clientBacklog)
		}
	}
}

func (h *hub) len() int {
	h.m.Lock()
	defer h.m.Unlock()
	return len(h.clients)
}
