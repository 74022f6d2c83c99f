package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressChannel is the Redis pub/sub channel job progress is relayed on.
const ProgressChannel = "eleicometro:jobs:progress"

// progressEvent is the wire shape relayed to external subscribers.
type progressEvent struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	At       int64   `json:"at"`
}

// Broadcaster relays coarse job progress ticks over Redis pub/sub so an
// external job-status layer can fan them out to its subscribers. When
// Redis is not configured the broadcaster degrades to a no-op.
type Broadcaster struct {
	client  *redis.Client
	enabled bool
}

// NewBroadcaster wraps a Redis client; a nil client disables broadcasting.
func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{
		client:  client,
		enabled: client != nil,
	}
}

// Publish sends one progress event. Failures are logged, never surfaced:
// progress relay is best-effort and must not affect the job itself.
func (b *Broadcaster) Publish(jobID, status string, progress float64) {
	if !b.enabled {
		return
	}

	payload, err := json.Marshal(progressEvent{
		JobID:    jobID,
		Status:   status,
		Progress: progress,
		At:       time.Now().Unix(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, ProgressChannel, payload).Err(); err != nil {
		slog.Warn("Failed to publish job progress", "job_id", jobID, "error", err)
	}
}
