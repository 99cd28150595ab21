package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"shifted/chat"
	"shifted/models"
	"shifted/store"
)

type CreateChatRequest struct {
	UserID       string `json:"userId" binding:"required"`
	FirstMessage string `json:"firstMessage" binding:"required"`
}

// CreateChat starts (or returns) the conversation between the caller
// and another user. Creation is idempotent: repeat calls for the same
// pair return the same id without re-sending the first message.
func (h *Handler) CreateChat(c *gin.Context) {
	userID := c.GetString("userId")

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	sender := h.currentUser(ctx, userID)
	conversationID, err := h.conversations.CreateOrGet(ctx, userID, req.UserID, req.FirstMessage, sender.DisplayName())
	if errors.Is(err, chat.ErrInvalidParticipant) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant"})
		return
	}
	if err != nil {
		h.log.WithError(err).Warn("create chat failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": conversationID})
}

// GetChatList returns the caller's conversations, newest first, with
// the counterpart resolved for rendering.
func (h *Handler) GetChatList(c *gin.Context) {
	userID := c.GetString("userId")

	ctx, cancel := h.requestContext()
	defer cancel()

	convs, err := h.conversations.ListForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chats"})
		return
	}

	names := make(map[string]string)
	response := make([]gin.H, len(convs))
	for i, conv := range convs {
		counterpart := conv.Counterpart(userID)
		name, ok := names[counterpart]
		if !ok {
			name = h.conversations.ResolveDisplayName(ctx, counterpart)
			names[counterpart] = name
		}
		response[i] = gin.H{
			"id":          conv.ID,
			"lastMessage": conv.LastMessage,
			"createdAt":   conv.CreatedAt,
			"partner": gin.H{
				"id":   counterpart,
				"name": name,
			},
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetMessages returns a conversation's full log, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	userID := c.GetString("userId")
	conversationID := c.Param("chatId")

	ctx, cancel := h.requestContext()
	defer cancel()

	conv, ok := h.conversationForUser(ctx, conversationID, userID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to chat"})
		return
	}

	messages, err := h.messages.List(ctx, conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID := c.GetString("userId")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	conv, ok := h.conversationForUser(ctx, req.ChatID, userID)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to chat"})
		return
	}

	sender := h.currentUser(ctx, userID)
	messageID, err := h.messages.Append(ctx, conv.ID, sender.DisplayName(), req.Text)
	if err != nil {
		h.log.WithError(err).Warn("send message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	go h.notifyCounterpart(conv, sender, req.Text)

	c.JSON(http.StatusCreated, gin.H{"id": messageID})
}

// conversationForUser loads a conversation and checks the caller is a
// participant.
func (h *Handler) conversationForUser(ctx context.Context, conversationID, userID string) (chat.Conversation, bool) {
	convs, err := h.conversations.ListForUser(ctx, userID)
	if err != nil {
		return chat.Conversation{}, false
	}
	for _, conv := range convs {
		if conv.ID == conversationID {
			return conv, true
		}
	}
	return chat.Conversation{}, false
}

// notifyCounterpart sends a best-effort web push to the other
// participant. Failures are logged and dropped.
func (h *Handler) notifyCounterpart(conv chat.Conversation, sender models.User, text string) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warnf("panic in push notification: %v", r)
		}
	}()

	if h.cfg.VAPIDPrivateKey == "" {
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	counterpart := conv.Counterpart(sender.ID)
	docs, err := h.store.Query(ctx, store.Query{
		Collection: pushSubsCollection,
		Equals:     map[string]interface{}{"userId": counterpart},
	})
	if err != nil {
		h.log.WithError(err).Debug("push subscription lookup failed")
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"title": sender.DisplayName() + " sent a message",
		"body":  text,
	})

	for _, doc := range docs {
		sub, ok := models.PushSubscriptionFromDoc(doc)
		if !ok {
			continue
		}
		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      h.cfg.PushSubscriber,
			VAPIDPublicKey:  h.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: h.cfg.VAPIDPrivateKey,
			TTL:             30,
		})
		if err != nil {
			h.log.WithError(err).Debug("push delivery failed")
			continue
		}
		resp.Body.Close()
	}
}
