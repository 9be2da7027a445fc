package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"board2048/internal/auth"
	"board2048/internal/handlers"
	"board2048/internal/i18n"
	"board2048/internal/session"
	"board2048/pkg/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	requestTimeout = 10 * time.Second
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed once Run returns
	done chan struct{}

	sessions    *session.Manager
	authService *auth.Service
	i18n        *i18n.I18n
	logger      *log.Logger
	upgrader    websocket.Upgrader

	// Mutex for thread safety
	mutex sync.RWMutex
}

// Client represents a WebSocket client
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	playerID string
	lang     string

	// Hub reference
	hub *Hub
}

// NewHub creates a new WebSocket hub. Browsers may connect from the
// server's own host or from any of allowedOrigins; "*" allows all.
func NewHub(sessions *session.Manager, authService *auth.Service, tr *i18n.I18n, logger *log.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		sessions:    sessions,
		authService: authService,
		i18n:        tr,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Run starts the hub and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.Debug("client connected", "player", client.playerID)

			// Send current game state if the player has a game
			go h.sendCurrentGameState(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("client disconnected", "player", client.playerID)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("dropping broadcast for slow client", "player", client.playerID)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Broadcast sends a message to every connected client
func (h *Hub) Broadcast(message models.WebSocketMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connections
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := handlers.RequestToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Message: h.i18n.T(i18n.GetLanguage(c), i18n.KeyAuthRequired),
			Code:    "auth_required",
		})
		return
	}

	claims, err := h.authService.ValidateJWT(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Message: h.i18n.T(i18n.GetLanguage(c), i18n.KeyInvalidToken),
			Code:    "invalid_token",
		})
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		playerID: claims.PlayerID,
		lang:     i18n.GetLanguage(c),
		hub:      h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// sendCurrentGameState sends the current game state to a newly connected client
func (h *Hub) sendCurrentGameState(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := h.sessions.Current(ctx, client.playerID)
	if errors.Is(err, session.ErrNoActiveGame) {
		return
	}
	if err != nil {
		h.logger.Error("failed to load game for new connection", "player", client.playerID, "error", err)
		return
	}
	client.sendGame(session.ActionState, resp)
}

// deliver queues data for one client, dropping it if the client is gone
// or not keeping up
func (h *Hub) deliver(client *Client, data []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("dropping message for slow client", "player", client.playerID)
	}
}

// syncPlayer sends a changed game to the player's other connections
func (h *Hub) syncPlayer(origin *Client, action session.Action, resp models.GameResponse) {
	h.mutex.RLock()
	var peers []*Client
	for client := range h.clients {
		if client != origin && client.playerID == origin.playerID {
			peers = append(peers, client)
		}
	}
	h.mutex.RUnlock()

	for _, peer := range peers {
		peer.sendGame(action, resp)
	}
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(message models.WebSocketMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		c.hub.logger.Error("failed to marshal message", "type", message.Type, "error", err)
		return
	}
	c.hub.deliver(c, data)
}

// readPump pumps messages from the websocket connection to the hub
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
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "player", c.playerID, "error", err)
			}
			break
		}

		var message inboundMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.sendError("bad_request", i18n.KeyBadRequest)
			continue
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
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

			// One JSON document per frame
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
