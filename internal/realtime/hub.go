// Package realtime pushes service events to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultSendBuffer = 32

// Event is the envelope written to clients.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

// Options configure a Hub.
type Options struct {
	// AllowedOrigins lists the Origin values accepted on upgrade. "*" allows
	// any origin; an empty list only accepts same-host requests.
	AllowedOrigins []string
	// SendBuffer is the number of events queued per client before the client
	// is dropped as too slow.
	SendBuffer int
	Logger     *slog.Logger
	Now        func() time.Time
}

type delivery struct {
	userIDs []string
	data    []byte
}

// Hub tracks connected clients by user id and fans events out to them. All
// client bookkeeping happens on the goroutine running Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	publish    chan delivery
	done       chan struct{}
	stopOnce   sync.Once

	clients map[string]map[*Client]struct{}
	count   atomic.Int64

	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *slog.Logger
	now        func() time.Time

	connected prometheus.Gauge
	dropped   prometheus.Counter
	published *prometheus.CounterVec
}

// NewHub constructs a Hub. Call Run before serving clients.
func NewHub(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}

	h := &Hub{
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		publish:    make(chan delivery, 256),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
		sendBuffer: buffer,
		logger:     logger.With("component", "realtime"),
		now:        now,
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hybridwork",
			Subsystem: "realtime",
			Name:      "clients_connected",
			Help:      "Websocket clients currently connected.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hybridwork",
			Subsystem: "realtime",
			Name:      "clients_dropped_total",
			Help:      "Clients disconnected because their send buffer was full.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hybridwork",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Events published by type.",
		}, []string{"type"}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

// Collectors returns the hub's Prometheus collectors for registration.
func (h *Hub) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.connected, h.dropped, h.published}
}

// ConnectedClients reports the number of registered clients.
func (h *Hub) ConnectedClients() int {
	return int(h.count.Load())
}

// Run processes registrations and deliveries until ctx is cancelled or Stop
// is called. Remaining clients are disconnected on exit.
func (h *Hub) Run(ctx context.Context) {
	h.logger.InfoContext(ctx, "realtime hub started")
	defer func() {
		for _, set := range h.clients {
			for c := range set {
				h.remove(c)
			}
		}
		h.logger.Info("realtime hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.publish:
			h.deliver(d)
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish implements application.Publisher. A nil or empty userIDs reaches
// every connected client. Events published after Stop are discarded.
func (h *Hub) Publish(userIDs []string, eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, SentAt: h.now().UTC()})
	if err != nil {
		h.logger.Error("failed to encode realtime event", "type", eventType, "error", err)
		return
	}
	h.published.WithLabelValues(eventType).Inc()
	select {
	case h.publish <- delivery{userIDs: userIDs, data: data}:
	case <-h.done:
	}
}

// ServeClient upgrades the request and attaches the connection to userID.
func (h *Hub) ServeClient(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	c := newClient(h, conn, userID)
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.count.Add(1)
	h.connected.Inc()
	h.logger.Debug("client registered", "client_id", c.id, "user_id", c.userID, "total", h.count.Load())

	welcome, _ := json.Marshal(Event{Type: "connected", Payload: map[string]string{"userId": c.userID}, SentAt: h.now().UTC()})
	h.enqueue(c, welcome)
}

func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.count.Add(-1)
	h.connected.Dec()
	h.logger.Debug("client unregistered", "client_id", c.id, "user_id", c.userID, "total", h.count.Load())
}

func (h *Hub) deliver(d delivery) {
	if len(d.userIDs) == 0 {
		for _, set := range h.clients {
			for c := range set {
				h.enqueue(c, d.data)
			}
		}
		return
	}
	seen := make(map[string]struct{}, len(d.userIDs))
	for _, id := range d.userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		for c := range h.clients[id] {
			h.enqueue(c, d.data)
		}
	}
}

// enqueue hands data to a client, dropping the client when its buffer is full.
func (h *Hub) enqueue(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping slow realtime client", "client_id", c.id, "user_id", c.userID)
		h.dropped.Inc()
		h.remove(c)
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	anyOrigin := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			anyOrigin = true
		}
		origins[strings.ToLower(o)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			return true
		}
		if len(origins) > 0 {
			_, ok := origins[strings.ToLower(strings.TrimRight(origin, "/"))]
			return ok
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
