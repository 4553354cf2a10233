package models

import (
	"time"

	"github.com/lib/pq"
)

// Digest is a summarized slice of one user's conversation, produced by the
// batch job and stored in Postgres alongside its embedding vector.
type Digest struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Summary   string          `json:"summary"`
	Vector    pq.Float64Array `json:"vector"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	CreatedAt time.Time       `json:"created_at"`
}
