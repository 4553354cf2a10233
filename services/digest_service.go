package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"relay/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	openai "github.com/sashabaranov/go-openai"
)

// DigestStore keeps conversation summaries and their embedding vectors in
// Postgres. The webhook pipeline reads the latest summary per user as
// extra prompt context; the batch job writes new rows.
type DigestStore struct {
	db *sql.DB
}

func NewDigestStore(postgresURI string) (*DigestStore, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else {
			connStr += "?sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DigestStore{db: db}, nil
}

func (d *DigestStore) EnsureSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS conversation_digests (
            id         TEXT PRIMARY KEY,
            user_id    TEXT NOT NULL,
            summary    TEXT NOT NULL,
            vector     FLOAT8[] NOT NULL,
            start_time TIMESTAMPTZ NOT NULL,
            end_time   TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to ensure digest schema: %w", err)
	}
	return nil
}

func (d *DigestStore) Save(ctx context.Context, digest models.Digest) error {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO conversation_digests (id, user_id, summary, vector, start_time, end_time)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, digest.ID, digest.UserID, digest.Summary, pq.Array([]float64(digest.Vector)), digest.StartTime, digest.EndTime)
	if err != nil {
		return fmt.Errorf("failed to save digest for %s: %w", digest.UserID, err)
	}
	return nil
}

// LatestSummary returns the newest digest summary for a user, or "" when
// none exists yet.
func (d *DigestStore) LatestSummary(ctx context.Context, userID string) (string, error) {
	var summary string
	err := d.db.QueryRowContext(ctx, `
        SELECT summary FROM conversation_digests
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, userID).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest digest for %s: %w", userID, err)
	}
	return summary, nil
}

func (d *DigestStore) Close() error {
	return d.db.Close()
}

// DigestProcessor summarizes recent conversations per active user and
// persists the summaries with embeddings.
type DigestProcessor struct {
	store   *ConversationStore
	digests *DigestStore
	ai      *openai.Client
	window  time.Duration
}

func NewDigestProcessor(store *ConversationStore, digests *DigestStore, apiKey string, window time.Duration) *DigestProcessor {
	return &DigestProcessor{
		store:   store,
		digests: digests,
		ai:      openai.NewClient(apiKey),
		window:  window,
	}
}

// Run performs one sweep. Per-user failures are logged and skipped; the
// sweep itself only fails when the active-user scan does.
func (p *DigestProcessor) Run(ctx context.Context) error {
	now := time.Now()
	since := now.Add(-p.window)

	users, err := p.store.ActiveUsersSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to get active users: %w", err)
	}

	for _, userID := range users {
		turns, err := p.store.TurnsSince(ctx, userID, since)
		if err != nil {
			log.Printf("error reading turns for user %s: %v", userID, err)
			continue
		}
		if len(turns) == 0 {
			continue
		}

		summary, err := p.summarize(ctx, turns)
		if err != nil {
			log.Printf("error summarizing conversations for user %s: %v", userID, err)
			continue
		}

		vector, err := p.embed(ctx, summary)
		if err != nil {
			log.Printf("error embedding summary for user %s: %v", userID, err)
			continue
		}

		digest := models.Digest{
			ID:        uuid.New().String(),
			UserID:    userID,
			Summary:   summary,
			Vector:    vector,
			StartTime: since,
			EndTime:   now,
		}
		if err := p.digests.Save(ctx, digest); err != nil {
			log.Printf("error saving digest for user %s: %v", userID, err)
			continue
		}

		log.Printf("digest saved for user %s (%d turns)", userID, len(turns))
	}

	return nil
}

func (p *DigestProcessor) summarize(ctx context.Context, turns []models.Turn) (string, error) {
	resp, err := p.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4TurboPreview,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Resuma a conversa abaixo em poucas frases, em PT-BR, preservando fatos sobre a rotina do usuário.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildDigestPrompt(turns),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarization request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *DigestProcessor) embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.ai.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding returned no data")
	}
	vector := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float64(v)
	}
	return vector, nil
}

func buildDigestPrompt(turns []models.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", turn.At, turn.Role, turn.Content)
	}
	return b.String()
}
