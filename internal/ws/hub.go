// Package ws fans inspection updates out to WebSocket and SSE subscribers.
package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub manages stream subscriptions by inspection ID. A single goroutine owns
// delivery so payloads reach each subscriber in broadcast order.
type Hub struct {
	mu        sync.RWMutex
	topics    map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	drop      chan string
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type message struct {
	inspectionID string
	payload      []byte
}

type subscription struct {
	inspectionID string
	client       Subscriber
}

// NewHub creates a running Hub.
func NewHub() *Hub {
	h := &Hub{
		topics:    make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, 64),
		drop:      make(chan string),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if _, ok := h.topics[sub.inspectionID]; !ok {
				h.topics[sub.inspectionID] = make(map[Subscriber]struct{})
			}
			h.topics[sub.inspectionID][sub.client] = struct{}{}
			h.mu.Unlock()
		case sub := <-h.unreg:
			h.mu.Lock()
			h.remove(sub.inspectionID, sub.client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.deliver(msg)
		case id := <-h.drop:
			h.mu.Lock()
			for c := range h.topics[id] {
				c.Close()
			}
			delete(h.topics, id)
			h.mu.Unlock()
		case <-h.stop:
			h.mu.Lock()
			for _, clients := range h.topics {
				for c := range clients {
					c.Close()
				}
			}
			h.topics = make(map[string]map[Subscriber]struct{})
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	clients := make([]Subscriber, 0, len(h.topics[msg.inspectionID]))
	for c := range h.topics[msg.inspectionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var failed []Subscriber
	for _, c := range clients {
		if err := c.Send(msg.payload); err != nil {
			c.Close()
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range failed {
		h.remove(msg.inspectionID, c)
	}
	h.mu.Unlock()
}

// remove deletes a subscriber; callers hold h.mu.
func (h *Hub) remove(inspectionID string, client Subscriber) {
	if clients, ok := h.topics[inspectionID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, inspectionID)
		}
	}
}

// Register adds a client to an inspection stream.
func (h *Hub) Register(inspectionID string, client Subscriber) {
	select {
	case h.register <- subscription{inspectionID: inspectionID, client: client}:
	case <-h.stop:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(inspectionID string, client Subscriber) {
	select {
	case h.unreg <- subscription{inspectionID: inspectionID, client: client}:
	case <-h.stop:
	}
}

// Broadcast queues payload for every subscriber of the inspection.
func (h *Hub) Broadcast(inspectionID string, payload []byte) {
	select {
	case h.broadcast <- message{inspectionID: inspectionID, payload: payload}:
	case <-h.stop:
	}
}

// Drop disconnects every subscriber of a closed inspection.
func (h *Hub) Drop(inspectionID string) {
	select {
	case h.drop <- inspectionID:
	case <-h.stop:
	}
}

// Subscribers reports how many clients follow an inspection.
func (h *Hub) Subscribers(inspectionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[inspectionID])
}

// Close disconnects every subscriber and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.stop) })
	<-h.done
}
