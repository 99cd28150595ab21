package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"shifted/chat"
	"shifted/config"
	"shifted/database"
	"shifted/handlers"
	"shifted/platform"
	"shifted/routes"
	"shifted/store"
	"shifted/websocket"
)

func main() {
	log := platform.Logger

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	log.Info("connecting to MongoDB")
	var dbErr error
	for i := 1; i <= 3; i++ {
		if dbErr = database.Connect(cfg.MongoURI); dbErr != nil {
			log.WithError(dbErr).Warnf("MongoDB connection attempt %d failed", i)
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}
	if dbErr != nil {
		log.WithError(dbErr).Fatal("failed to connect to MongoDB")
	}
	defer database.Disconnect()
	log.Info("MongoDB connected")

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Engine wiring: one document store, one message log, one
	// conversation adapter shared by HTTP and websocket surfaces.
	docStore := store.NewMongo(database.Database(cfg.DatabaseName), log)
	messages := chat.NewMessages(docStore, log)
	conversations := chat.NewConversations(docStore, messages, chat.NewStoreProfiles(docStore), log)

	h := handlers.NewHandler(cfg, docStore, conversations, messages, log)
	router := routes.SetupRouter(cfg, h)

	wsManager := websocket.NewManager(conversations, messages, cfg.JWTSecret, log)
	go wsManager.Start()
	router.GET("/ws", gin.WrapF(wsManager.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}

	log.Info("server stopped")
}
