package main

import (
	"context"
	"log"
	"time"

	"relay/config"
	"relay/controllers"
	"relay/middlewares"
	"relay/routes"
	"relay/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	store, err := services.NewConversationStore(cfg)
	if err != nil {
		log.Fatalf("failed to build conversation store: %v", err)
	}
	store.EnsureTables(context.Background())

	generator, err := services.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("failed to build generation client: %v", err)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	sender := services.NewWhatsAppClient(cfg.GraphAPIBase, cfg.WhatsAppToken, cfg.WhatsAppPhoneID, timeout)

	// Digest lookup is optional prompt enrichment; the relay runs without it.
	var digests controllers.DigestLookup
	if cfg.PostgresURI != "" {
		ds, err := services.NewDigestStore(cfg.PostgresURI)
		if err != nil {
			log.Printf("digest store unavailable, continuing without it: %v", err)
		} else {
			digests = ds
		}
	}

	webhook := controllers.NewWebhookController(
		cfg.VerifyToken, store, generator, sender, digests, cfg.SnapshotRunes, timeout,
	)
	chat := controllers.NewChatController(
		store, generator, cfg.HistoryWindow, cfg.MaxTurnRunes, timeout,
	)
	signature := middlewares.VerifySignature(cfg.AppSecret, cfg.RequireSignature)

	router := routes.SetupRouter(webhook, chat, signature)

	log.Printf("server starting on port :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
