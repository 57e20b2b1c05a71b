package panel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/logging"
	"github.com/san-kum/sandglass/internal/tilt"
)

const broadcastBuffer = 64

// Hub maintains the set of connected panel clients. The control loop talks to
// it through Send and Read, neither of which blocks.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex

	// latest frame per address, replayed to clients when they join.
	latest map[uint8][]byte

	tiltMu sync.Mutex
	tilt   tilt.Reading

	dropped  atomic.Int64
	upgrader websocket.Upgrader
	log      *slog.Logger
	done     chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latest:     make(map[uint8][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:  log,
		done: make(chan struct{}),
	}
}

// Run handles registration and fan-out until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Info("panel hub shutting down")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			for _, msg := range h.latest {
				select {
				case c.send <- msg:
				default:
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("panel client connected", "remote", c.conn.RemoteAddr().String(), "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("panel client disconnected", "clients", len(h.clients))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.latest[msg[0]] = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					h.log.Warn("dropping slow panel client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send queues a frame for every client. When the queue is full the frame is
// dropped; the next changed frame supersedes it anyway.
func (h *Hub) Send(addr uint8, f frame.Frame) error {
	select {
	case h.broadcast <- Encode(addr, f):
	default:
		if n := h.dropped.Add(1); n%100 == 1 {
			h.log.Debug("panel broadcast queue full", "dropped", n)
		}
	}
	return nil
}

// Read returns the last tilt reading pushed by any client.
func (h *Hub) Read() tilt.Reading {
	h.tiltMu.Lock()
	defer h.tiltMu.Unlock()
	return h.tilt
}

func (h *Hub) setTilt(r tilt.Reading) {
	h.tiltMu.Lock()
	h.tilt = r
	h.tiltMu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := NewClient(h, conn)
	c.Register()
	go c.WritePump()
	go c.ReadPump()
}
