package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds everything the relay reads from the environment. Clients are
// constructed once at startup from this struct and injected; nothing else
// reads os.Getenv.
type Config struct {
	Port string

	// Webhook handshake and request authentication.
	VerifyToken      string
	AppSecret        string
	RequireSignature bool

	// Outbound delivery (WhatsApp Cloud API).
	WhatsAppToken   string
	WhatsAppPhoneID string
	GraphAPIBase    string

	// Generation backend: "gemini" or "openai".
	ModelProvider string
	GeminiAPIKey  string
	GeminiAPIBase string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Conversation store (DynamoDB).
	DynamoRegion      string
	DynamoEndpoint    string
	UsersTable        string
	ChatsTable        string
	ChatMessagesTable string

	// Digest job / prompt enrichment (Postgres). Optional for the server.
	PostgresURI string

	// Pipeline bounds.
	RequestTimeoutSeconds int
	HistoryWindow         int
	MaxTurnRunes          int
	SnapshotRunes         int
}

// Load reads the relay configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		Port:             envOrDefault("PORT", "8080"),
		VerifyToken:      os.Getenv("VERIFY_TOKEN"),
		AppSecret:        os.Getenv("APP_SECRET"),
		RequireSignature: envBoolOrDefault("REQUIRE_SIGNATURE", false),

		WhatsAppToken:   os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID: os.Getenv("WHATSAPP_PHONE_ID"),
		GraphAPIBase:    envOrDefault("GRAPH_API_BASE", "https://graph.facebook.com/v21.0"),

		ModelProvider: envOrDefault("MODEL_PROVIDER", "gemini"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiAPIBase: envOrDefault("GEMINI_API_BASE", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:   envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		DynamoRegion:      envOrDefault("DYNAMO_REGION", "us-east-1"),
		DynamoEndpoint:    os.Getenv("DYNAMO_ENDPOINT"),
		UsersTable:        envOrDefault("DYNAMO_USERS_TABLE", "WhatsappUsers"),
		ChatsTable:        envOrDefault("DYNAMO_CHATS_TABLE", "Chats"),
		ChatMessagesTable: envOrDefault("DYNAMO_CHAT_MESSAGES_TABLE", "ChatMessages"),

		PostgresURI: os.Getenv("POSTGRES_URI"),

		RequestTimeoutSeconds: envIntOrDefault("REQUEST_TIMEOUT_SECONDS", 15),
		HistoryWindow:         envIntOrDefault("HISTORY_WINDOW", 12),
		MaxTurnRunes:          envIntOrDefault("MAX_TURN_RUNES", 4000),
		SnapshotRunes:         envIntOrDefault("SNAPSHOT_RUNES", 800),
	}

	if cfg.VerifyToken == "" {
		return Config{}, fmt.Errorf("VERIFY_TOKEN is required in environment")
	}
	if cfg.WhatsAppToken == "" {
		return Config{}, fmt.Errorf("WHATSAPP_TOKEN is required in environment")
	}
	if cfg.WhatsAppPhoneID == "" {
		return Config{}, fmt.Errorf("WHATSAPP_PHONE_ID is required in environment")
	}
	if cfg.RequireSignature && cfg.AppSecret == "" {
		return Config{}, fmt.Errorf("REQUIRE_SIGNATURE=true needs APP_SECRET set")
	}
	switch cfg.ModelProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("GEMINI_API_KEY is required when MODEL_PROVIDER=gemini")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when MODEL_PROVIDER=openai")
		}
	default:
		return Config{}, fmt.Errorf("unknown MODEL_PROVIDER %q (want gemini or openai)", cfg.ModelProvider)
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
