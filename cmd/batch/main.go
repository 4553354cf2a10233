// cmd/batch/main.go
package main

import (
	"context"
	"log"
	"time"

	"relay/config"
	"relay/services"

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
	if cfg.PostgresURI == "" {
		log.Fatal("POSTGRES_URI is required for the digest job")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required for the digest job")
	}

	store, err := services.NewConversationStore(cfg)
	if err != nil {
		log.Fatalf("failed to build conversation store: %v", err)
	}

	var digests *services.DigestStore
	for i := 0; i < 3; i++ {
		digests, err = services.NewDigestStore(cfg.PostgresURI)
		if err == nil {
			break
		}
		log.Printf("attempt %d: failed to connect digest store: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("failed to connect digest store after retries: %v", err)
	}
	defer digests.Close()

	if err := digests.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure digest schema: %v", err)
	}

	processor := services.NewDigestProcessor(store, digests, cfg.OpenAIAPIKey, 3*time.Hour)

	log.Println("starting digest job...")

	if err := processor.Run(context.Background()); err != nil {
		log.Printf("error in initial digest sweep: %v", err)
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("starting scheduled digest sweep...")
		if err := processor.Run(context.Background()); err != nil {
			log.Printf("error in digest sweep: %v", err)
		}
		log.Println("digest sweep completed")
	}
}
