package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ClientHandler receives inbound frames and disconnect notifications.
// Implemented by the Hub; set after construction to break the
// manager/hub cycle.
type ClientHandler interface {
	HandleMessage(conn *Connection, data []byte)
	HandleDisconnect(conn *Connection)
}

// ConnectionManager owns all websocket connections and the per-room
// broadcast groups. Broadcasts go through a buffered channel drained by a
// single goroutine, so no caller ever performs network I/O while holding
// a session lock.
type ConnectionManager struct {
	mu sync.RWMutex
	// Connection pools organized by room ID
	groups map[string]map[string]*Connection
	// Which room each connection currently belongs to
	memberships map[string]string

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  ClientHandler

	broadcastCh chan broadcastMessage
}

// Connection represents a websocket connection to a client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	RoomID   string
	ExceptID string // optional: if set, skip this connection
	Event    *Event
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new websocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		groups:      make(map[string]map[string]*Connection),
		memberships: make(map[string]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// SetHandler wires the inbound message handler. Must be called before any
// connection is upgraded.
func (cm *ConnectionManager) SetHandler(handler ClientHandler) {
	cm.handler = handler
}

// Start begins draining the broadcast channel until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket connection.
// The connection belongs to no room until a JoinRoom call adds it to a
// broadcast group.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("websocket connection established")

	return nil
}

// JoinGroup adds conn to roomID's broadcast group. A connection belongs
// to at most one room; joining a second room moves it.
func (cm *ConnectionManager) JoinGroup(roomID string, conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if previous, ok := cm.memberships[conn.ID]; ok && previous != roomID {
		cm.removeFromGroupLocked(previous, conn.ID)
	}

	if cm.groups[roomID] == nil {
		cm.groups[roomID] = make(map[string]*Connection)
	}
	cm.groups[roomID][conn.ID] = conn
	cm.memberships[conn.ID] = roomID

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", roomID).
		Int("group_size", len(cm.groups[roomID])).
		Msg("connection joined broadcast group")
}

// LeaveGroup removes the connection from roomID's broadcast group.
func (cm *ConnectionManager) LeaveGroup(roomID, connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.removeFromGroupLocked(roomID, connectionID)
}

func (cm *ConnectionManager) removeFromGroupLocked(roomID, connectionID string) {
	if group, ok := cm.groups[roomID]; ok {
		delete(group, connectionID)
		if len(group) == 0 {
			delete(cm.groups, roomID)
		}
	}
	if cm.memberships[connectionID] == roomID {
		delete(cm.memberships, connectionID)
	}
}

// unregisterConnection removes a closed connection from its group.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	roomID, member := cm.memberships[conn.ID]
	if member {
		cm.removeFromGroupLocked(roomID, conn.ID)
	}
	cm.mu.Unlock()

	if member {
		log.Info().
			Str("connection_id", conn.ID).
			Str("room_id", roomID).
			Msg("connection unregistered")
	}
}

// Broadcast sends an event to every member of roomID's group.
func (cm *ConnectionManager) Broadcast(roomID string, event *Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{RoomID: roomID, Event: event}:
	default:
		log.Warn().Str("room_id", roomID).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastExcept sends an event to every group member except one
// connection, used to tell everyone else about a join.
func (cm *ConnectionManager) BroadcastExcept(roomID, exceptConnectionID string, event *Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{RoomID: roomID, ExceptID: exceptConnectionID, Event: event}:
	default:
		log.Warn().Str("room_id", roomID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	group, exists := cm.groups[message.RoomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot the targets so the lock is not held during sends.
	targets := make([]*Connection, 0, len(group))
	for id, conn := range group {
		if message.ExceptID != "" && id == message.ExceptID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Event)).
		Str("room_id", message.RoomID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GroupSize returns the number of connections in a room's group.
func (cm *ConnectionManager) GroupSize(roomID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.groups[roomID])
}

// ConnectionStats returns counts of active connections per room.
func (cm *ConnectionManager) ConnectionStats() (total int, perRoom map[string]int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	perRoom = make(map[string]int, len(cm.groups))
	for roomID, group := range cm.groups {
		perRoom[roomID] = len(group)
		total += len(group)
	}
	return total, perRoom
}

// writePump handles sending messages to the websocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the websocket connection and
// dispatches them to the client handler. When the read loop exits the
// handler gets a disconnect notification so the participant can be
// removed from their room.
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.handler != nil {
			c.Manager.handler.HandleDisconnect(c)
		}
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
