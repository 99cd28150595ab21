package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"shifted/models"
	"shifted/store"
)

func (h *Handler) GetVapidPublicKey(c *gin.Context) {
	if h.cfg.VAPIDPublicKey == "" {
		c.JSON(http.StatusOK, gin.H{"error": "VAPID public key not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.cfg.VAPIDPublicKey})
}

type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscribePush registers (or replaces) the caller's push endpoint.
func (h *Handler) SubscribePush(c *gin.Context) {
	userID := c.GetString("userId")

	var req SubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	sub := models.PushSubscription{
		UserID: userID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}

	// One subscription per user: reuse the existing document when
	// present.
	existing, err := h.store.Query(ctx, store.Query{
		Collection: pushSubsCollection,
		Equals:     map[string]interface{}{"userId": userID},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if len(existing) > 0 {
		err = h.store.Set(ctx, pushSubsCollection+"/"+existing[0].ID, sub.Fields())
	} else {
		_, err = h.store.Add(ctx, pushSubsCollection, sub.Fields())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}
