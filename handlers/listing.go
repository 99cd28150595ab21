package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shifted/models"
	"shifted/store"
)

type ListingRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
	Category    string   `json:"category"`
}

func (h *Handler) CreateListing(c *gin.Context) {
	userID := c.GetString("userId")

	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	seller := h.currentUser(ctx, userID)
	listing := models.Listing{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		SellerID:    userID,
		SellerName:  seller.DisplayName(),
		CreatedAt:   time.Now().UTC(),
	}

	id, err := h.store.Add(ctx, listingsCollection, listing.Fields())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create listing"})
		return
	}

	listing.ID = id
	c.JSON(http.StatusCreated, listing)
}

// GetListings returns all listings, newest first. Records that fail to
// decode are dropped from the response.
func (h *Handler) GetListings(c *gin.Context) {
	ctx, cancel := h.requestContext()
	defer cancel()

	docs, err := h.store.Query(ctx, store.Query{
		Collection: listingsCollection,
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}

	listings := make([]models.Listing, 0, len(docs))
	for _, doc := range docs {
		if listing, ok := models.ListingFromDoc(doc); ok {
			listings = append(listings, listing)
		}
	}

	c.JSON(http.StatusOK, listings)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	userID := c.GetString("userId")
	listingID := c.Param("id")

	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	path := listingsCollection + "/" + listingID
	doc, err := h.store.Get(ctx, path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	existing, ok := models.ListingFromDoc(doc)
	if !ok || existing.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the owner of this listing"})
		return
	}

	fields := store.Fields{
		"title":       req.Title,
		"description": req.Description,
		"price":       req.Price,
		"images":      req.Images,
		"category":    req.Category,
	}
	if err := h.store.Set(ctx, path, fields); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update listing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Listing updated"})
}

// DeleteListing removes a listing after verifying the caller owns it.
func (h *Handler) DeleteListing(c *gin.Context) {
	userID := c.GetString("userId")
	listingID := c.Param("id")

	ctx, cancel := h.requestContext()
	defer cancel()

	path := listingsCollection + "/" + listingID
	doc, err := h.store.Get(ctx, path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	existing, ok := models.ListingFromDoc(doc)
	if !ok || existing.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the owner of this listing"})
		return
	}

	if err := h.store.Delete(ctx, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete listing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}
