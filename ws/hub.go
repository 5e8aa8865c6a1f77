// Package ws rebroadcasts progression-engine outcomes to live
// subscribers of a stage, adapted from the teacher's tournament-room
// hub (brackets/hub.go): the same room-keyed client registry and
// ping/pong keepalive, generalized from "tournament room" to "stage
// room" and from ad hoc log.Printf to a *slog.Logger. It is a
// read-only projection -- nothing here ever calls back into the
// engine (SPEC_FULL §6.5).
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType enumerates the live progression events a stage room emits.
type EventType string

const (
	EventMatchUpdated        EventType = "MATCH_UPDATED"
	EventParticipantAdvanced EventType = "PARTICIPANT_ADVANCED"
	EventStageCreated        EventType = "STAGE_CREATED"
	EventStageCompleted      EventType = "STAGE_COMPLETED"
)

// Event is one message broadcast to a stage's room.
type Event struct {
	Type    EventType `json:"type"`
	StageID int       `json:"stage_id"`
	Payload any       `json:"payload,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one subscriber connection, pinned to a single stage room.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	stageID int
	closed  bool
	mu      sync.Mutex
}

// Hub fans Broadcast events out to every client registered to the
// matching stage room.
type Hub struct {
	logger       *slog.Logger
	pingInterval time.Duration

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu    sync.RWMutex
	rooms map[int]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	return NewHubWithPingInterval(logger, pingPeriod)
}

// NewHubWithPingInterval lets the caller override the keepalive ping
// cadence (config.WSPingInterval); NewHub uses the
// teacher-derived default.
func NewHubWithPingInterval(logger *slog.Logger, pingInterval time.Duration) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if pingInterval <= 0 {
		pingInterval = pingPeriod
	}
	return &Hub{
		logger:       logger,
		pingInterval: pingInterval,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan Event),
		rooms:        make(map[int]map[*Client]bool),
	}
}

// Run drains registration and broadcast channels. It never returns;
// it runs until the process exits. Intended to run in its
// own goroutine from cmd/server/main.go.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.stageID] == nil {
				h.rooms[c.stageID] = make(map[*Client]bool)
			}
			h.rooms[c.stageID][c] = true
			h.logger.Info("ws client registered", slog.Int("stage_id", c.stageID), slog.Int("room_size", len(h.rooms[c.stageID])))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.stageID]; ok {
				if _, ok := room[c]; ok {
					c.mu.Lock()
					if !c.closed {
						close(c.send)
						c.closed = true
					}
					c.mu.Unlock()
					delete(room, c)
					if len(room) == 0 {
						delete(h.rooms, c.stageID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[event.StageID]
	if !ok {
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal ws event", slog.Any("error", err))
		return
	}
	for c := range room {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			continue
		}
		select {
		case c.send <- b:
		default:
			h.logger.Warn("ws client send buffer full, dropping event", slog.Int("stage_id", event.StageID))
		}
		c.mu.Unlock()
	}
}

// Publish is the engine-facing entry point: queue an event for
// delivery to a stage's room. Safe to call from any goroutine.
func (h *Hub) Publish(event Event) {
	h.broadcast <- event
}

// Subscribe upgrades an accepted websocket connection into a Client
// registered to stageID's room and starts its read/write pumps.
func (h *Hub) Subscribe(conn *websocket.Conn, stageID int) *Client {
	c := &Client{hub: h, conn: conn, send: make(chan []byte, 16), stageID: stageID}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
