package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EntryEvent announces a catalog change to connected clients.
type EntryEvent struct {
	Type      string    `json:"type"` // "entry.created", "entry.updated", "entry.deleted"
	EntryID   string    `json:"entry_id"`
	Title     string    `json:"title"`
	EntryType string    `json:"entry_type"`
	At        time.Time `json:"at"`
}

// ImportEvent announces a finished import run.
type ImportEvent struct {
	Type    string    `json:"type"` // "import.finished"
	RunID   string    `json:"run_id"`
	Status  string    `json:"status"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	At      time.Time `json:"at"`
}

// Hub fans events out to websocket clients. Dead connections are dropped
// on the first failed write.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
