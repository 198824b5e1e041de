// Package status broadcasts conversion progress to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/logger"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

type Message struct {
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Type     int       `json:"type"`
	Progress float32   `json:"progress"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug("ws write msg error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Debug("ws write ping error", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains client frames so close and pong control messages are
// handled. It closes send once the peer goes away.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			c.hub.unregister(c)
			return
		}
	}
}

// Hub fans messages out to every connected client. New clients receive
// the last message sent.
type Hub struct {
	broadcast chan *Message
	done      chan struct{}
	log       *zap.Logger

	closeLock sync.RWMutex
	closed    bool

	lock    sync.Mutex
	clients map[*client]bool
	last    []byte
}

func NewHub() *Hub {
	h := &Hub{
		broadcast: make(chan *Message, 16),
		done:      make(chan struct{}),
		clients:   make(map[*client]bool),
		log:       logger.Named("status"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)
	for s := range h.broadcast {
		data, err := json.Marshal(s)
		if err != nil {
			h.log.Error("Failed to marshal status", zap.Error(err))
			continue
		}
		h.lock.Lock()
		h.last = data
		for c := range h.clients {
			select {
			case c.send <- data:
			default:
				h.log.Debug("Dropping status for slow client")
			}
		}
		h.lock.Unlock()
	}
}

// Close stops the hub and disconnects every client. Messages sent after
// Close are dropped.
func (h *Hub) Close() {
	h.closeLock.Lock()
	if h.closed {
		h.closeLock.Unlock()
		return
	}
	h.closed = true
	close(h.broadcast)
	h.closeLock.Unlock()

	<-h.done

	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve takes ownership of conn until the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn) {
	h.closeLock.RLock()
	if h.closed {
		h.closeLock.RUnlock()
		conn.Close()
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}

	h.lock.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.lock.Unlock()
	h.closeLock.RUnlock()

	go c.writePump()
	c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) Status(msg string, _type int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	h.closeLock.RLock()
	defer h.closeLock.RUnlock()
	if h.closed {
		return
	}
	h.broadcast <- &Message{
		Message:  msg,
		Time:     time.Now(),
		Type:     _type,
		Progress: progress}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), INFO, 0.0)
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func (h *Hub) Progress(progress float32, format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}
