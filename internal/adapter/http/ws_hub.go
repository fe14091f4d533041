package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/observ"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 32
)

type wsClient struct {
	conn   *websocket.Conn
	userID string
	admin  bool
	send   chan []byte
}

// Hub fans live-feed events out to connected WebSocket subscribers. Admins get
// every order event; customers only get events for their own orders.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
}

func NewHub(allowOrigins []string) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowOrigins, "*") || slices.Contains(allowOrigins, origin)
			},
		},
	}
}

// ServeWS upgrades an authenticated request and subscribes it to the feed.
func (h *Hub) ServeWS(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.From(c).Warn("ws upgrade", "err", err)
		return
	}

	cl := &wsClient{conn: conn, userID: p.UserID, admin: p.IsAdmin(), send: make(chan []byte, wsSendBuffer)}
	h.add(cl)
	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) add(cl *wsClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	observ.WSClients(1)
}

func (h *Hub) remove(cl *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
		observ.WSClients(-1)
	}
	h.mu.Unlock()
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(cl *wsClient) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) NotifyAdmins(ev usecase.FeedEvent) {
	h.broadcast(ev, func(cl *wsClient) bool { return cl.admin })
}

func (h *Hub) NotifyUser(userID string, ev usecase.FeedEvent) {
	h.broadcast(ev, func(cl *wsClient) bool { return !cl.admin && cl.userID == userID })
}

func (h *Hub) broadcast(ev usecase.FeedEvent, match func(*wsClient) bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.New("ws-hub").Error("marshal feed event", "type", ev.Type, "err", err)
		return
	}
	var slow []*wsClient
	h.mu.RLock()
	for cl := range h.clients {
		if !match(cl) {
			continue
		}
		select {
		case cl.send <- data:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()
	for _, cl := range slow {
		h.remove(cl)
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*wsClient, 0, len(h.clients))
	for cl := range h.clients {
		all = append(all, cl)
	}
	h.mu.RUnlock()
	for _, cl := range all {
		h.remove(cl)
	}
}

var _ usecase.LiveFeed = (*Hub)(nil)
