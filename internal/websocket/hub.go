package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"demandplanner/internal/infrastructure"
	"demandplanner/pkg/contracts/events"
)

const broadcastBuffer = 64

// Hub maintains the set of connected clients and fans messages out to them.
// Run is the only goroutine that touches the client set.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	running bool
	count   int

	messagesSent    atomic.Int64
	messagesDropped atomic.Int64

	logger *slog.Logger
}

// NewHub creates a stopped hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a new goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the loop and closes every client's send channel. It blocks until
// the loop has exited.
func (h *Hub) Stop() {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()

	h.stopOnce.Do(func() { close(h.quit) })
	if running {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			h.greet(c)
			h.logger.InfoContext(c.context(), "client registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			delete(h.clients, c)
			close(c.send)
			h.setCount(len(h.clients))
			h.logger.InfoContext(c.context(), "client unregistered",
				slog.String("client_id", c.id),
				slog.Duration("connection_duration", time.Since(c.connectedAt)),
				slog.Int("total_clients", len(h.clients)))

		case message := <-h.broadcast:
			failed := 0
			for c := range h.clients {
				select {
				case c.send <- message:
					h.messagesSent.Add(1)
				default:
					// slow client
					delete(h.clients, c)
					close(c.send)
					failed++
					h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
						slog.String("client_id", c.id))
				}
			}
			h.setCount(len(h.clients))
			h.logger.Debug("message broadcast",
				slog.Int("clients", len(h.clients)),
				slog.Int("disconnected", failed),
				slog.Int("message_size", len(message)))
		}
	}
}

func (h *Hub) greet(c *Client) {
	data, err := json.Marshal(events.NewMessage(events.MessageTypeConnect, c.traceID, events.Connected{ClientID: c.id}))
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Register adds c to the hub. A client registered after Stop has its send
// channel closed straight away.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		close(c.send)
	}
}

// Unregister removes c and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Publish queues msg for every connected client. It never blocks: when the
// queue is full the message is dropped.
func (h *Hub) Publish(ctx context.Context, msg events.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("message_type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.messagesDropped.Add(1)
		h.logger.WarnContext(ctx, "broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stats returns delivery counters
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":   int64(h.ClientCount()),
		"messages_sent":    h.messagesSent.Load(),
		"messages_dropped": h.messagesDropped.Load(),
	}
}
