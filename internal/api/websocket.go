package api

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/logging"
)

// ChannelDisplayChanged is the only WebSocket channel. Its events carry the
// name and new text of a status display.
const ChannelDisplayChanged = "display.changed"

// Message types exchanged on /ws.
const (
	wsSubscribe    = "subscribe"
	wsUnsubscribe  = "unsubscribe"
	wsPing         = "ping"
	wsPong         = "pong"
	wsSubscribed   = "subscribed"
	wsUnsubscribed = "unsubscribed"
	wsEvent        = "event"
	wsError        = "error"

	wsSendBuffer = 64
)

// wsMessage is the single frame shape in both directions. Clients send
// {"type":"subscribe"}; events arrive as
// {"type":"event","event":"display.changed","name":"booster","text":"Active : 04:55"}.
type wsMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
	Time  string `json:"time,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// displayHub fans display changes out to subscribed clients.
//
// Every send to a client channel happens under mu, and a channel is only
// closed under mu after its client is removed, so nothing is ever sent on a
// closed channel.
type displayHub struct {
	logger  *logging.Logger
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn       *websocket.Conn
	send       chan []byte
	subscribed atomic.Bool
	subject    string
}

func newDisplayHub(logger *logging.Logger) *displayHub {
	return &displayHub{logger: logger, clients: make(map[*wsClient]struct{})}
}

func (h *displayHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", n)
}

func (h *displayHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("websocket client disconnected", "subject", c.subject, "clients", n)
	}
}

func (h *displayHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// publish queues a display.changed event for every subscribed client. A
// client whose buffer is full misses the event.
func (h *displayHub) publish(name, text string) {
	data := encode(displayEvent(name, text))

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.subscribed.Load() {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, dropping event", "subject", c.subject, "display", name)
		}
	}
}

// reply queues msg for c alone, if c is still connected.
func (h *displayHub) reply(c *wsClient, msg wsMessage) {
	data := encode(msg)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// closeAll disconnects every client.
func (h *displayHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func displayEvent(name, text string) wsMessage {
	return wsMessage{
		Type:  wsEvent,
		Event: ChannelDisplayChanged,
		Name:  name,
		Text:  text,
		Time:  time.Now().UTC().Format(time.RFC3339),
	}
}

func encode(msg wsMessage) []byte {
	data, _ := json.Marshal(msg) //nolint:errcheck // string fields always marshal
	return data
}

// handleWebSocket upgrades the connection. authMiddleware has already
// checked the token from the query string.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	if claims := claimsFromContext(r.Context()); claims != nil {
		c.subject = claims.Subject
	}

	s.hub.add(c)
	go s.writeLoop(c)
	go s.readLoop(c)
}

func (s *Server) readLoop(c *wsClient) {
	defer func() {
		s.hub.remove(c)
		c.conn.Close()
	}()

	ping, pong := wsTimings(s.wsCfg)
	keepAlive := ping + pong
	extend := func() {
		_ = c.conn.SetReadDeadline(time.Now().Add(keepAlive)) //nolint:errcheck // a failed deadline surfaces as a read error
	}
	if s.wsCfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		extend()
		s.handleMessage(c, msg)
	}
}

func (s *Server) handleMessage(c *wsClient, msg wsMessage) {
	switch msg.Type {
	case wsSubscribe:
		c.subscribed.Store(true)
		s.hub.reply(c, wsMessage{Type: wsSubscribed, ID: msg.ID, Event: ChannelDisplayChanged})
		// Bring the new subscriber up to date with the current board.
		board := s.displays.Snapshot()
		for _, name := range slices.Sorted(maps.Keys(board)) {
			s.hub.reply(c, displayEvent(name, board[name]))
		}
	case wsUnsubscribe:
		c.subscribed.Store(false)
		s.hub.reply(c, wsMessage{Type: wsUnsubscribed, ID: msg.ID, Event: ChannelDisplayChanged})
	case wsPing:
		s.hub.reply(c, wsMessage{Type: wsPong, ID: msg.ID})
	default:
		s.hub.reply(c, wsMessage{Type: wsError, ID: msg.ID, Error: "unknown message type: " + msg.Type})
	}
}

func (s *Server) writeLoop(c *wsClient) {
	interval, writeWait := wsTimings(s.wsCfg)
	ping := time.NewTicker(interval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error caught below
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // best-effort close frame
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // ping error caught below
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsTimings returns the ping interval and pong timeout, with defaults for
// unset values.
func wsTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping, pong = 30*time.Second, 10*time.Second
	if cfg.PingInterval > 0 {
		ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return ping, pong
}
