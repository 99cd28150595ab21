package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"shifted/chat"
	"shifted/middleware"
)

// Manager tracks connected clients and bridges the chat engine's live
// subscriptions onto their websocket connections. Unlike a broadcast
// hub, every delivery is scoped to the client whose controller
// produced it.
type Manager struct {
	conversations *chat.Conversations
	messages      *chat.Messages
	jwtSecret     string
	log           *logrus.Logger

	mu         sync.Mutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

func NewManager(conversations *chat.Conversations, messages *chat.Messages, jwtSecret string, log *logrus.Logger) *Manager {
	return &Manager{
		conversations: conversations,
		messages:      messages,
		jwtSecret:     jwtSecret,
		log:           log,
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			total := len(m.clients)
			m.mu.Unlock()
			m.log.WithField("user", client.identity.UserID).
				Infof("websocket client connected, total %d", total)

		case client := <-m.unregister:
			// The send channel is never closed here: controller
			// push callbacks run on store delivery goroutines and
			// may still be inside sendFrame. writePump exits on
			// the client context instead.
			m.mu.Lock()
			delete(m.clients, client)
			total := len(m.clients)
			m.mu.Unlock()
			m.log.Infof("websocket client disconnected, total %d", total)
		}
	}
}

func (m *Manager) ConnectedClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades authenticated requests (?token=JWT) to websocket
// clients.
func (m *Manager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		userID, err := middleware.ParseToken(token, m.jwtSecret)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.log.WithError(err).Warn("websocket upgrade failed")
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		client := &Client{
			conn:    conn,
			manager: m,
			send:    make(chan []byte, 256),
			identity: chat.StaticIdentity{
				UserID:  userID,
				Display: m.conversations.ResolveDisplayName(ctx, userID),
			},
			sessions: make(map[string]*chat.Session),
			ctx:      ctx,
			cancel:   cancel,
		}

		m.register <- client
		client.sendFrame("connected", map[string]interface{}{
			"userId": userID,
			"time":   time.Now().Unix(),
		})

		go client.writePump()
		go client.readPump()
	}
}

// Client is one websocket connection plus the live controllers opened
// on its behalf.
type Client struct {
	conn     *websocket.Conn
	manager  *Manager
	send     chan []byte
	identity chat.StaticIdentity
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	list     *chat.List
	sessions map[string]*chat.Session
}

type frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type inboundFrame struct {
	Type    string `json:"type"`
	Payload struct {
		ChatID string `json:"chatId"`
		Text   string `json:"text"`
	} `json:"payload"`
}

func (c *Client) sendFrame(kind string, payload interface{}) {
	if c.ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(frame{Type: kind, Payload: payload})
	if err != nil {
		c.manager.log.WithError(err).Warn("frame marshal failed")
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow consumer; the write pump will notice the closed
		// connection soon enough.
	}
}

func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.WithError(err).Debug("websocket read error")
			}
			return
		}

		var msg inboundFrame
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.manager.log.WithError(err).Debug("websocket frame unmarshal error")
			continue
		}

		switch msg.Type {
		case "subscribe_chats":
			c.handleSubscribeChats()
		case "subscribe_chat":
			c.handleSubscribeChat(msg.Payload.ChatID)
		case "unsubscribe_chat":
			c.handleUnsubscribeChat(msg.Payload.ChatID)
		case "send_message":
			c.handleSendMessage(msg.Payload.ChatID, msg.Payload.Text)
		case "ping":
			c.sendFrame("pong", map[string]interface{}{"time": time.Now().Unix()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSubscribeChats opens the client's live conversation list.
// Every change pushes the full current list.
func (c *Client) handleSubscribeChats() {
	c.mu.Lock()
	if c.list != nil {
		c.mu.Unlock()
		return
	}
	list := chat.NewList(c.manager.conversations, func(entries []chat.ListEntry) {
		c.sendFrame("chats", entries)
	})
	c.list = list
	c.mu.Unlock()

	if err := list.Open(c.ctx, c.identity.UserID); err != nil {
		c.manager.log.WithError(err).Warn("conversation list subscription failed")
		c.sendFrame("error", map[string]interface{}{"message": "subscription failed"})
	}
}

// handleSubscribeChat opens a live session on one conversation. The
// client must be a participant.
func (c *Client) handleSubscribeChat(chatID string) {
	if !chat.IsParticipantID(chatID, c.identity.UserID) {
		c.sendFrame("error", map[string]interface{}{"message": "access denied", "chatId": chatID})
		return
	}

	c.mu.Lock()
	if _, open := c.sessions[chatID]; open {
		c.mu.Unlock()
		return
	}
	session := chat.NewSession(c.manager.messages, c.identity, func(messages []chat.Message) {
		c.sendFrame("messages", map[string]interface{}{
			"chatId":   chatID,
			"messages": messages,
		})
	})
	c.sessions[chatID] = session
	c.mu.Unlock()

	if err := session.Open(c.ctx, chatID); err != nil {
		c.manager.log.WithError(err).Warn("chat session subscription failed")
		c.mu.Lock()
		delete(c.sessions, chatID)
		c.mu.Unlock()
		c.sendFrame("error", map[string]interface{}{"message": "subscription failed", "chatId": chatID})
	}
}

func (c *Client) handleUnsubscribeChat(chatID string) {
	c.mu.Lock()
	session := c.sessions[chatID]
	delete(c.sessions, chatID)
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

func (c *Client) handleSendMessage(chatID, text string) {
	c.mu.Lock()
	session := c.sessions[chatID]
	c.mu.Unlock()
	if session == nil {
		c.sendFrame("error", map[string]interface{}{"message": "not subscribed", "chatId": chatID})
		return
	}

	if err := session.Submit(c.ctx, text); err != nil {
		c.manager.log.WithError(err).Warn("send over websocket failed")
		c.sendFrame("error", map[string]interface{}{"message": "send failed", "chatId": chatID})
	}
}

// shutdown closes every controller this client opened.
func (c *Client) shutdown() {
	c.cancel()

	c.mu.Lock()
	list := c.list
	c.list = nil
	sessions := c.sessions
	c.sessions = make(map[string]*chat.Session)
	c.mu.Unlock()

	if list != nil {
		list.Close()
	}
	for _, session := range sessions {
		session.Close()
	}
}
