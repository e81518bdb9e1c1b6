package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 4096                // room for a watch_routes list
	sendBuffer     = 64
)

// Messages a feed client may send
const (
	MsgPing        = "ping"
	MsgWatchRoutes = "watch_routes"
)

// Replies sent only to the requesting client
const (
	EventPong     = "pong"
	EventWatching = "watching"
)

// IncomingMessage is a control message from a feed client
type IncomingMessage struct {
	Type     string   `json:"type"`
	RouteIDs []string `json:"route_ids,omitempty"`
}

// Client is one live feed connection. Dispatchers may narrow the feed to a
// set of routes; drivers only ever get their own trips.
type Client struct {
	UserID   string
	UserRole string

	conn *websocket.Conn
	hub  *Hub
	log  *zap.SugaredLogger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	routes map[string]struct{} // empty means every route
}

func NewClient(userID, userRole string, conn *websocket.Conn, hub *Hub, log *zap.SugaredLogger) *Client {
	return &Client{
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		log:      log,
		send:     make(chan []byte, sendBuffer),
	}
}

// enqueue queues data for the writer. It reports false when the client is
// gone or too slow to keep up.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown stops the writer. Safe to call more than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) watches(routeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.routes) == 0 {
		return true
	}
	_, ok := c.routes[routeID]
	return ok
}

func (c *Client) watchRoutes(ids []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = make(map[string]struct{}, len(ids))
	watching := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := c.routes[id]; id == "" || dup {
			continue
		}
		c.routes[id] = struct{}{}
		watching = append(watching, id)
	}
	return watching
}

func (c *Client) reply(eventType string, data interface{}) {
	b, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		c.log.Errorf("❌ Failed to marshal %s reply: %v", eventType, err)
		return
	}
	if !c.enqueue(b) {
		c.log.Debugf("Dropped %s reply for %s", eventType, c.UserID)
	}
}

// ReadPump handles control messages until the connection drops
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warnf("⚠️ Feed connection for %s closed: %v", c.UserID, err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debugf("Ignoring malformed feed message from %s: %v", c.UserID, err)
			continue
		}

		switch msg.Type {
		case MsgPing:
			c.reply(EventPong, map[string]int64{"server_time": time.Now().UnixMilli()})

		case MsgWatchRoutes:
			watching := c.watchRoutes(msg.RouteIDs)
			c.log.Infof("👀 %s watching routes %v", c.UserID, watching)
			c.reply(EventWatching, map[string][]string{"route_ids": watching})

		default:
			c.log.Debugf("Ignoring feed message %q from %s", msg.Type, c.UserID)
		}
	}
}

// WritePump delivers queued events and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
