package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/relayhub/internal/automation"
	"github.com/nerrad567/relayhub/internal/infrastructure/config"
	"github.com/nerrad567/relayhub/internal/infrastructure/logging"
	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// WebSocket message types.
const (
	WSTypeToggleRelay    = "toggleRelay"
	WSTypeSetRelayMode   = "setRelayMode"
	WSTypeAddSchedule    = "addSchedule"
	WSTypeDeleteSchedule = "deleteSchedule"
	WSTypePing           = "ping"
	WSTypePong           = "pong"
	WSTypeEvent          = "event"
	WSTypeResponse       = "response"
	WSTypeError          = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage is the envelope for every message sent to a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// wsInbound is a client command. Payload is decoded per command type.
type wsInbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSTogglePayload is the object form of the toggleRelay payload.
type WSTogglePayload struct {
	Relay any `json:"relay"`
}

// WSModePayload is the payload of setRelayMode.
type WSModePayload struct {
	Relay any    `json:"relay"`
	Mode  string `json:"mode"`
}

// WSAddSchedulePayload is the payload of addSchedule.
type WSAddSchedulePayload struct {
	Relay    any            `json:"relay"`
	Schedule *schedule.Rule `json:"schedule"`
}

// WSDeleteSchedulePayload is the payload of deleteSchedule.
type WSDeleteSchedulePayload struct {
	Relay any  `json:"relay"`
	Index *int `json:"index"`
}

// RelayController is the set of engine operations a session may invoke.
// *automation.Engine satisfies it.
type RelayController interface {
	Connect(s automation.Session)
	Toggle(relayID int) error
	SetMode(relayID int, mode relay.Mode) error
	AddSchedule(relayID int, rule schedule.Rule) (int, error)
	DeleteSchedule(relayID, index int) error
}

// Hub manages WebSocket connections and broadcasts engine events.
// Every client receives every event.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client. It is the
// automation.Session for that connection.
type WSClient struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	engine RelayController
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast sends an event to every connected client. It never blocks: a
// client whose buffer is full misses the event.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "event", event, "error", err)
		return
	}

	// Snapshot client list under hub lock, then release before sending
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
	if len(clients) > 0 {
		h.logger.Debug("broadcast sent", "event", event, "recipients", len(clients))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}

// handleWebSocket upgrades the connection, registers the client and sends it
// the current snapshot.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		id:     uuid.NewString(),
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		engine: s.engine,
	}

	// Register before the snapshot: an event broadcast in between is older
	// than the snapshot that follows it, never newer.
	s.hub.Register(client)
	s.engine.Connect(client)
	s.logger.Debug("websocket session opened", "session", client.id, "remote", r.RemoteAddr)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// Send queues an event for this client only.
func (c *WSClient) Send(event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		c.hub.logger.Error("failed to marshal event", "event", event, "error", err)
		return
	}
	c.trySend(data)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "session", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "session", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one client command to the engine. Results and
// errors go back to this client only; state changes reach everyone through
// the hub.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	var (
		result any
		err    error
	)
	switch msg.Type {
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
		return
	case WSTypeToggleRelay:
		err = c.handleToggle(msg.Payload)
	case WSTypeSetRelayMode:
		err = c.handleSetMode(msg.Payload)
	case WSTypeAddSchedule:
		result, err = c.handleAddSchedule(msg.Payload)
	case WSTypeDeleteSchedule:
		err = c.handleDeleteSchedule(msg.Payload)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
		return
	}

	if err != nil {
		if automation.IsValidationError(err) {
			c.hub.logger.Debug("websocket command rejected", "type", msg.Type, "error", err)
			c.sendError(msg.ID, err.Error())
			return
		}
		c.hub.logger.Error("websocket command failed", "type", msg.Type, "error", err)
		c.sendError(msg.ID, "internal error")
		return
	}

	if result == nil {
		result = map[string]any{"ok": true}
	}
	c.sendResponse(msg.ID, WSTypeResponse, result)
}

// handleToggle accepts the relay id as a bare number or numeric string, or as
// an object with a relay field.
func (c *WSClient) handleToggle(raw json.RawMessage) error {
	var v any
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var p WSTogglePayload
		if err := decodePayload(raw, &p); err != nil {
			return err
		}
		v = p.Relay
	} else if err := decodePayload(raw, &v); err != nil {
		return err
	}
	id, err := relay.ParseID(v)
	if err != nil {
		return err
	}
	return c.engine.Toggle(id)
}

func (c *WSClient) handleSetMode(raw json.RawMessage) error {
	var p WSModePayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	id, err := relay.ParseID(p.Relay)
	if err != nil {
		return err
	}
	mode, err := relay.ParseMode(p.Mode)
	if err != nil {
		return err
	}
	return c.engine.SetMode(id, mode)
}

func (c *WSClient) handleAddSchedule(raw json.RawMessage) (any, error) {
	var p WSAddSchedulePayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	id, err := relay.ParseID(p.Relay)
	if err != nil {
		return nil, err
	}
	if p.Schedule == nil {
		return nil, fmt.Errorf("%w: schedule is required", automation.ErrInvalidPayload)
	}
	index, err := c.engine.AddSchedule(id, *p.Schedule)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "index": index}, nil
}

func (c *WSClient) handleDeleteSchedule(raw json.RawMessage) error {
	var p WSDeleteSchedulePayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	id, err := relay.ParseID(p.Relay)
	if err != nil {
		return err
	}
	if p.Index == nil {
		return fmt.Errorf("%w: index is required", automation.ErrInvalidPayload)
	}
	return c.engine.DeleteSchedule(id, *p.Index)
}

// decodePayload strictly decodes a command payload. Unknown fields and
// trailing data are rejected.
func decodePayload(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: missing payload", automation.ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", automation.ErrInvalidPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", automation.ErrInvalidPayload)
	}
	return nil
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
