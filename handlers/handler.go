package handlers

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"shifted/chat"
	"shifted/config"
	"shifted/middleware"
	"shifted/models"
	"shifted/store"
)

const (
	usersCollection     = "users"
	listingsCollection  = "listings"
	questionsCollection = "questions"
	pushSubsCollection  = "push_subscriptions"

	requestTimeout = 10 * time.Second
	tokenLifetime  = 24 * time.Hour
)

// Handler carries every dependency the HTTP surface needs.
type Handler struct {
	cfg           *config.Config
	store         store.Store
	conversations *chat.Conversations
	messages      *chat.Messages
	log           *logrus.Logger
}

func NewHandler(cfg *config.Config, st store.Store, conversations *chat.Conversations, messages *chat.Messages, log *logrus.Logger) *Handler {
	return &Handler{
		cfg:           cfg,
		store:         st,
		conversations: conversations,
		messages:      messages,
		log:           log,
	}
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (h *Handler) issueToken(userID string) (string, error) {
	claims := &middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// currentUser loads the authenticated user's record. A missing record
// yields a zero user with only the id set, so callers always have a
// display identity to fall back on.
func (h *Handler) currentUser(ctx context.Context, userID string) models.User {
	doc, err := h.store.Get(ctx, usersCollection+"/"+userID)
	if err != nil {
		return models.User{ID: userID}
	}
	return models.UserFromDoc(doc)
}
