package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"synergy/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal caps WebSocket connections across all sessions
	MaxWSConnectionsTotal = 1000

	// DefaultWSConnectionsPerIP caps connections from one address
	DefaultWSConnectionsPerIP = 5

	// StatePushInterval is how often clients receive their session state
	StatePushInterval = 100 * time.Millisecond

	wsWriteTimeout = 2 * time.Second
)

// wsClient is one connection watching one session
type wsClient struct {
	conn      *websocket.Conn
	ip        string
	sessionID string
	lastSeq   uint64 // Owned by the hub loop
}

// wsMessage is the envelope for everything pushed to clients
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// WebSocketHub pushes session state to subscribed connections.
// Only the Run loop writes to connections.
type WebSocketHub struct {
	sessions SessionStore
	upgrader websocket.Upgrader

	clients    map[*websocket.Conn]*wsClient
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Connection slots, reserved before upgrade and held until drop
	slots      map[string]int // per IP
	slotsTotal int
	maxPerIP   int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWebSocketHub creates a hub. Nothing runs until Run.
func NewWebSocketHub(sessions SessionStore, origins []string, maxPerIP int) *WebSocketHub {
	if origins == nil {
		origins = DefaultOrigins
	}
	if maxPerIP <= 0 {
		maxPerIP = DefaultWSConnectionsPerIP
	}
	h := &WebSocketHub{
		sessions:   sessions,
		clients:    make(map[*websocket.Conn]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		slots:      make(map[string]int),
		maxPerIP:   maxPerIP,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if OriginAllowed(origin, origins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set and pushes state every StatePushInterval
func (h *WebSocketHub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(StatePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client %s watching session %s (%d total)", client.ip, client.sessionID, count)
			UpdateWSConnections(count)
			h.push(client)

		case conn := <-h.unregister:
			h.drop(conn)

		case <-ticker.C:
			h.mu.RLock()
			clients := make([]*wsClient, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.push(c)
			}
		}
	}
}

// push sends the client its session state if it changed since the last push.
// A vanished session closes the connection.
func (h *WebSocketHub) push(c *wsClient) {
	s, err := h.sessions.Get(c.sessionID)
	if err != nil {
		h.send(c, wsMessage{Event: "session:closed", Data: map[string]string{"id": c.sessionID}})
		h.drop(c.conn)
		return
	}

	snap := s.Snapshot()
	if snap.Sequence == c.lastSeq {
		return
	}
	if h.send(c, wsMessage{Event: "game:state", Data: snap}) {
		c.lastSeq = snap.Sequence
		IncrementWSMessages()
	}
}

func (h *WebSocketHub) send(c *wsClient, msg wsMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.drop(c.conn)
		return false
	}
	return true
}

func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.release(client.ip)
	conn.Close()
	log.Printf("📱 Client disconnected (%d remaining)", count)
	UpdateWSConnections(count)
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*wsClient)
	h.mu.Unlock()

	for conn, c := range clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		h.release(c.ip)
		conn.Close()
	}
	UpdateWSConnections(0)
}

type slotResult int

const (
	slotGranted slotResult = iota
	slotTotalLimit
	slotIPLimit
)

// reserve claims a connection slot for ip. Slots cover pending upgrades
// too, so both caps hold while handshakes are in flight.
func (h *WebSocketHub) reserve(ip string) slotResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.slotsTotal >= MaxWSConnectionsTotal {
		return slotTotalLimit
	}
	if h.slots[ip] >= h.maxPerIP {
		return slotIPLimit
	}
	h.slots[ip]++
	h.slotsTotal++
	return slotGranted
}

// release frees a slot claimed by reserve
func (h *WebSocketHub) release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.slots[ip] <= 0 {
		return
	}
	h.slots[ip]--
	h.slotsTotal--
	if h.slots[ip] == 0 {
		delete(h.slots, ip)
	}
}

// Stop closes every connection and ends Run. Safe to call more than once.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades GET /ws/{id} and feeds incoming actions to the session
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, "Session not found", http.StatusNotFound)
		return
	}

	ip := GetClientIP(r)

	switch h.reserve(ip) {
	case slotTotalLimit:
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", MaxWSConnectionsTotal)
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	case slotIPLimit:
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.release(ip)
		return
	}
	conn.SetReadLimit(maxInputBody)

	select {
	case h.register <- &wsClient{conn: conn, ip: ip, sessionID: id}:
	case <-h.stop:
		h.release(ip)
		conn.Close()
		return
	}

	go h.readLoop(conn, s)
}

// readLoop applies client actions until the connection fails
func (h *WebSocketHub) readLoop(conn *websocket.Conn, s *session.Session) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req inputRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		action, err := session.ParseAction(req.Action)
		if err != nil {
			log.Printf("📨 Ignoring WebSocket input for %s: %v", s.ID, err)
			continue
		}
		s.Apply(action)
	}
}
