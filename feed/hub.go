// Package feed serves simulation snapshots to websocket observers and
// accepts key and lifecycle messages from them.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/plankton/control"
)

// Command is a lifecycle request from an observer. The simulation loop
// drains them between ticks.
type Command struct {
	Action string  `json:"action"` // pause, resume, reset, reconfigure, override
	Cells  int     `json:"cells,omitempty"`
	Range  float64 `json:"range,omitempty"`
	Angle  float64 `json:"angle,omitempty"`
	On     bool    `json:"on,omitempty"`
}

// Message is anything an observer sends.
type Message struct {
	Type    string   `json:"type"` // "key" or "command"
	Key     string   `json:"key,omitempty"`
	Down    bool     `json:"down,omitempty"`
	Command *Command `json:"command,omitempty"`
}

// Hub maintains the set of active clients and broadcasts snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	commands   chan Command
	keys       *control.KeyState
	done       chan struct{} // closed when Run returns
	mu         sync.Mutex
}

// NewHub creates a hub that writes key messages into keys.
func NewHub(keys *control.KeyState) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 1),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan Command, 16),
		keys:       keys,
		done:       make(chan struct{}),
	}
}

// Run handles registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("observer connected", "remote", client.conn.RemoteAddr().String())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				slog.Info("observer disconnected", "remote", client.conn.RemoteAddr().String())
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish serializes v and queues it for every client. It never blocks:
// when the previous snapshot has not gone out yet it is replaced.
func (h *Hub) Publish(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	for {
		select {
		case h.broadcast <- payload:
			return nil
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// Commands returns the queue of lifecycle requests.
func (h *Hub) Commands() <-chan Command {
	return h.commands
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handle applies one observer message.
func (h *Hub) handle(msg Message) {
	switch msg.Type {
	case "key":
		if !h.keys.Set(msg.Key, msg.Down) {
			slog.Warn("unknown key from observer", "key", msg.Key)
		}
	case "command":
		if msg.Command == nil {
			return
		}
		select {
		case h.commands <- *msg.Command:
		default:
			slog.Warn("command queue full, dropping", "action", msg.Command.Action)
		}
	default:
		slog.Warn("unknown observer message", "type", msg.Type)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades an HTTP request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Handler returns a mux serving the feed at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}
