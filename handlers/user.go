package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shifted/chat"
	"shifted/models"
	"shifted/store"
)

func (h *Handler) GetMyProfile(c *gin.Context) {
	userID := c.GetString("userId")

	ctx, cancel := h.requestContext()
	defer cancel()

	doc, err := h.store.Get(ctx, usersCollection+"/"+userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	c.JSON(http.StatusOK, models.UserFromDoc(doc))
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func (h *Handler) UpdateMyProfile(c *gin.Context) {
	userID := c.GetString("userId")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := store.Fields{}
	if req.FirstName != nil {
		fields["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["lastName"] = *req.LastName
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	if err := h.store.Set(ctx, usersCollection+"/"+userID, fields); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// GetUser always answers 200 with renderable data; unknown ids get the
// fallback name rather than an error.
func (h *Handler) GetUser(c *gin.Context) {
	userID := c.Param("id")

	ctx, cancel := h.requestContext()
	defer cancel()

	doc, err := h.store.Get(ctx, usersCollection+"/"+userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"id":   userID,
			"name": chat.UnknownName,
		})
		return
	}

	user := models.UserFromDoc(doc)
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"name":      h.conversations.ResolveDisplayName(ctx, userID),
		"firstName": user.FirstName,
		"lastName":  user.LastName,
	})
}
