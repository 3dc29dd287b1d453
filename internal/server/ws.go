package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/events"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type liveMessage struct {
	Session   string `json:"session"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

// sendBuffer is how many messages may queue for one client before it is
// considered too slow and dropped.
const sendBuffer = 16

// liveClient is one websocket subscriber. Only its writer goroutine touches conn
// for writes; send is closed by the hub when the client is removed.
type liveClient struct {
	conn    *websocket.Conn
	session string
	send    chan []byte
}

// Hub broadcasts confirmed gesture changes to websocket clients. A client
// may pass ?session=<id> to receive a single session's changes.
//
// Consume never blocks on the network: messages are queued per client and
// written by that client's goroutine, and a client whose queue is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*liveClient]struct{})}
}

// Name returns the consumer name.
func (h *Hub) Name() string { return "live" }

// Consume queues c for every interested client.
func (h *Hub) Consume(c events.Change) error {
	msg, err := json.Marshal(liveMessage{
		Session:   c.SessionID,
		Label:     string(c.Label),
		Timestamp: c.Timestamp.UnixMilli(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		if cl.session != "" && cl.session != c.SessionID {
			continue
		}
		select {
		case cl.send <- msg:
		default:
			slog.Debug("dropping slow live client", "session", cl.session)
			h.removeLocked(cl)
		}
	}
	return nil
}

// removeLocked unregisters cl and closes its queue. h.mu must be held.
func (h *Hub) removeLocked(cl *liveClient) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) remove(cl *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "error", err)
		return
	}

	cl := &liveClient{
		conn:    conn,
		session: r.URL.Query().Get("session"),
		send:    make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(cl)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(cl)
	<-done
}

// writeLoop writes queued messages until the queue is closed or a write fails.
func writeLoop(cl *liveClient) {
	defer cl.conn.Close()

	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("live client write failed", "remote", cl.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
	cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		h.removeLocked(cl)
	}
}
