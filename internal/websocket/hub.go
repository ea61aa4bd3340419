package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/adapters/llm"
	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 10 << 20 // whole voice clips arrive as one frame

	// Upper bound for one chat turn including retries and narration.
	turnTimeout = 3 * time.Minute

	// Frames waiting to be processed per connection.
	inboxSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the web client's origin once it has a fixed host
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ChatHandler runs chat turns for a session
type ChatHandler interface {
	HandleText(ctx context.Context, session *entities.Session, text string) (*usecase.TurnResult, error)
	HandleVoice(ctx context.Context, session *entities.Session, audio []byte, config repositories.AudioConfig) (*usecase.TurnResult, error)
	Clear(session *entities.Session)
}

var _ ChatHandler = (*usecase.ChatOrchestrator)(nil)

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients.
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	chat      ChatHandler
	validator *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(chat ChatHandler, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		chat:       chat,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.session.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.session.ID))
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll drops every connection. Each client unregisters itself once its
// pending frames are processed.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.conn.Close()
	}
}

// WriteData is one outbound frame
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// inbound is one frame waiting for the client's processing loop
type inbound struct {
	messageType int
	payload     []byte
}

// Client is the actor for one connection. Frames are handled one at a time
// in arrival order; the session's own turn lock serialises it against REST calls.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Frames read but not yet processed.
	inbox chan inbound

	session *entities.Session
	logger  *zap.Logger

	// Applies to binary voice frames; only touched by processLoop.
	audioConfig repositories.AudioConfig

	ctx    context.Context
	cancel context.CancelFunc
}

// HandleWebSocket upgrades the request and starts an actor bound to session
func HandleWebSocket(hub *Hub, c echo.Context, session *entities.Session, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan WriteData, 256),
		inbox:   make(chan inbound, inboxSize),
		session: session,
		logger:  logger.With(zap.String("sessionID", session.ID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.processLoop()
	go client.readPump()

	return nil
}

// readPump reads frames from the connection into the inbox.
func (c *Client) readPump() {
	defer func() {
		close(c.inbox)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			// Abandon the running turn; queued frames are still drained below.
			c.cancel()
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}

		select {
		case c.inbox <- inbound{messageType: messageType, payload: message}:
		default:
			c.sendJSON(CreateErrorMessage("", "busy", "Too many messages in flight, wait for the previous replies", ""))
		}
	}
}

// processLoop handles inbound frames strictly in arrival order
func (c *Client) processLoop() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
	}()

	for frame := range c.inbox {
		switch frame.messageType {
		case websocket.TextMessage:
			c.processMessage(frame.payload)
		case websocket.BinaryMessage:
			c.processVoice(frame.payload)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
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

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage handles one text frame
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("", "invalid_message", err.Error(), ""))
		return
	}

	switch msg := parsed.(type) {
	case *ChatMessage:
		c.handleChat(msg)
	case *ClearMessage:
		c.hub.chat.Clear(c.session)
		c.sendJSON(&ClearedMessage{
			BaseMessage: newBase(MessageTypeCleared, msg.MessageID),
			SessionID:   c.session.ID,
		})
	case *LanguageMessage:
		language, _ := entities.ParseLanguageTag(msg.Language)
		c.session.SetLanguage(language)
		c.sendJSON(&LanguageSetMessage{
			BaseMessage: newBase(MessageTypeLanguageSet, msg.MessageID),
			SessionID:   c.session.ID,
			Language:    language,
		})
	case *AudioConfigMessage:
		c.audioConfig = repositories.AudioConfig{
			Encoding:   msg.Encoding,
			SampleRate: msg.SampleRate,
			Language:   msg.Language,
		}
	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.MessageID, msg.Data))
	}
}

func (c *Client) handleChat(msg *ChatMessage) {
	ctx, cancel := context.WithTimeout(c.ctx, turnTimeout)
	defer cancel()

	result, err := c.hub.chat.HandleText(ctx, c.session, msg.Text)
	if err != nil {
		c.sendTurnError(msg.MessageID, err)
		return
	}
	c.sendJSON(CreateAssistantReplyMessage(msg.MessageID, result.Reply(c.session.ID, true)))
}

// processVoice handles one binary frame holding a complete voice clip
func (c *Client) processVoice(audio []byte) {
	ctx, cancel := context.WithTimeout(c.ctx, turnTimeout)
	defer cancel()

	c.logger.Info("Received voice clip", zap.Int("size", len(audio)))

	config := c.audioConfig
	if config.Encoding == "" {
		config.Encoding = "WAV"
	}

	result, err := c.hub.chat.HandleVoice(ctx, c.session, audio, config)
	if err != nil {
		c.sendTurnError("", err)
		return
	}
	c.sendJSON(CreateAssistantReplyMessage("", result.Reply(c.session.ID, true)))
}

func (c *Client) sendTurnError(messageID string, err error) {
	switch {
	case errors.Is(err, usecase.ErrEmptyInput):
		c.sendJSON(CreateErrorMessage(messageID, "empty_input", "Message cannot be empty", ""))
	case errors.Is(err, usecase.ErrDuplicateVoice):
		c.sendJSON(CreateErrorMessage(messageID, "duplicate_voice", "This recording was already sent", ""))
	case errors.Is(err, usecase.ErrSpeechNotRecognised):
		c.sendJSON(CreateErrorMessage(messageID, "speech_not_recognised", "Could not understand the audio, please try again", ""))
	case errors.Is(err, llm.ErrCompletionFailed):
		c.sendJSON(CreateErrorMessage(messageID, "completion_failed", "The assistant is not reachable right now, please try again", err.Error()))
	default:
		c.logger.Error("Chat turn failed", zap.Error(err))
		c.sendJSON(CreateErrorMessage(messageID, "internal_error", "Failed to process message", ""))
	}
}

// sendJSON queues v for the write pump. Frames are dropped when the peer is
// not keeping up.
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full")
	}
}
