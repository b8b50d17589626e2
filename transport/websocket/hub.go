package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Frame formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the frame sent to subscribers of a game
type Message struct {
	GameID string             `json:"game_id"`
	Event  string             `json:"event"`
	Data   *service.GameEvent `json:"data,omitempty"`
}

// Client is one websocket subscriber
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
	format string
}

type countRequest struct {
	gameID string
	reply  chan int
}

// Hub fans game events out to the websocket clients watching each game.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients by game ID
	games map[string]map[*Client]bool

	// Events waiting to be fanned out
	broadcast chan service.GameEvent

	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	done       chan struct{}
}

var _ service.EventPublisher = (*Hub)(nil)

// NewHub creates a new websocket hub
func NewHub() *Hub {
	return &Hub{
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan service.GameEvent, engine.WebSocketBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.games {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case req := <-h.counts:
			req.reply <- len(h.games[req.gameID])
		}
	}
}

// Publish queues an event for the game's subscribers. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Publish(event service.GameEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Warn().Str("game", event.GameID).Str("event", event.Type).Msg("WebSocket broadcast queue full, dropping event")
	}
}

// ClientCount returns the number of clients watching gameID
func (h *Hub) ClientCount(gameID string) int {
	req := countRequest{gameID: gameID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades the request and subscribes the connection to gameID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID, format string) {
	if format != FormatMsgpack {
		format = FormatJSON
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("game", gameID).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, engine.WebSocketBufferSize),
		gameID: gameID,
		format: format,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to a game
func (h *Hub) registerClient(client *Client) {
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true

	log.Debug().
		Str("game", client.gameID).
		Str("client", client.id).
		Str("format", client.format).
		Int("clients", len(h.games[client.gameID])).
		Msg("WebSocket client registered")
}

// unregisterClient removes a client from a game
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.games[client.gameID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}

	log.Debug().
		Str("game", client.gameID).
		Str("client", client.id).
		Int("clients", len(clients)).
		Msg("WebSocket client unregistered")
}

// broadcastEvent encodes the event once per format and queues it for every client of the game
func (h *Hub) broadcastEvent(event service.GameEvent) {
	clients, ok := h.games[event.GameID]
	if !ok {
		return
	}

	message := &Message{GameID: event.GameID, Event: event.Type, Data: &event}
	frames := make(map[string][]byte, 2)

	for client := range clients {
		data, ok := frames[client.format]
		if !ok {
			var err error
			data, err = Encode(message, client.format)
			if err != nil {
				log.Error().Err(err).Str("format", client.format).Msg("Failed to encode broadcast message")
				continue
			}
			frames[client.format] = data
		}

		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

// Encode renders a message in the given frame format
func Encode(message *Message, format string) ([]byte, error) {
	if format != FormatMsgpack {
		return json.Marshal(message)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a frame produced by Encode
func Decode(data []byte, format string) (*Message, error) {
	var message Message
	if format != FormatMsgpack {
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, err
		}
		return &message, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// readPump drains the connection so control frames are handled; client messages are ignored
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.id).Msg("WebSocket error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	messageType := websocket.TextMessage
	if c.format == FormatMsgpack {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(messageType, message); err != nil {
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
