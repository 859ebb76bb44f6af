package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"
)

const (
	// broadcastInterval bounds dashboard staleness even with no traffic.
	broadcastInterval = 5 * time.Second
)

// Message types on the dashboard channel.
const (
	MessageViewerUpdate = "viewer-update"

	SignalWatching   = "watching"
	SignalPageview   = "pageview"
	SignalSessionEnd = "session-end"
)

// Message is one frame on the dashboard websocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Signal is an inbound client report.
type Signal struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Episode     string `json:"episode,omitempty"`
	Chapter     string `json:"chapter,omitempty"`
	Page        string `json:"page,omitempty"`
}

// ViewerUpdate is the payload pushed to dashboard subscribers.
type ViewerUpdate struct {
	Count    int64            `json:"count"`
	Watchers []models.Session `json:"watchers"`
}

// Hub projects the session store onto connected dashboard clients. It holds
// no analytics state of its own: every broadcast is a fresh snapshot, so
// overlapping broadcasts are idempotent and last-delivered-wins.
type Hub struct {
	sessions *services.SessionService
	logger   *slog.Logger

	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	trigger    chan struct{}
	mu         sync.RWMutex
}

func NewHub(sessions *services.SessionService, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   sessions,
		logger:     logger,
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		trigger:    make(chan struct{}, 1),
	}
}

// Run services client lifecycle, signal-triggered broadcasts and the fixed
// interval timer until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Realtime hub starting", "interval", broadcastInterval.String())
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Dashboard client connected", "total_clients", total)
			// Seed the new client immediately instead of waiting a tick.
			h.broadcast()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Dashboard client disconnected", "total_clients", total)

		case <-h.trigger:
			h.broadcast()

		case <-ticker.C:
			h.broadcast()

		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Realtime hub stopping")
			return
		}
	}
}

// HandleSignal applies one inbound client report to the session store and
// schedules a broadcast. Unknown signal types are ignored.
func (h *Hub) HandleSignal(sig Signal) {
	if sig.SessionID == "" {
		return
	}

	var err error
	switch sig.Type {
	case SignalWatching:
		err = h.sessions.SetWatching(sig.SessionID, sig.ContentType, sig.ContentID, sig.Title, sig.Episode, sig.Chapter)
	case SignalPageview:
		err = h.sessions.ClearContent(sig.SessionID, sig.Page)
	case SignalSessionEnd:
		err = h.sessions.End(sig.SessionID)
	default:
		return
	}
	if err != nil {
		h.logger.Error("Failed to apply realtime signal", "type", sig.Type, "session_id", sig.SessionID, "error", err)
	}

	h.TriggerBroadcast()
}

// TriggerBroadcast schedules an immediate broadcast. Coalesces when one is
// already pending.
func (h *Hub) TriggerBroadcast() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// broadcast snapshots the live-session registry and fans it out. Slow
// clients are dropped rather than allowed to stall the rest.
func (h *Hub) broadcast() {
	count, err := h.sessions.ActiveCount()
	if err != nil {
		h.logger.Error("Failed to count active viewers", "error", err)
		return
	}
	watchers, err := h.sessions.ActiveWatchers()
	if err != nil {
		h.logger.Error("Failed to list active watchers", "error", err)
		return
	}

	message := Message{
		Type: MessageViewerUpdate,
		Data: ViewerUpdate{Count: count, Watchers: watchers},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("Dropping slow dashboard client")
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected dashboard clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
