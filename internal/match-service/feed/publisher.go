// Package feed pushes match snapshots into Redis so the feed-service
// can serve reads and fan updates out over websockets without touching
// Postgres.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Akhil-Rawat/Plexo/internal/match"
)

const snapshotTTL = 10 * time.Minute

func key(matchID string) string { return "match:snapshot:" + matchID }

// WSUpdate is the payload broadcast on the pubsub channel.
type WSUpdate struct {
	MatchID string `json:"matchId"`
	Payload any    `json:"payload"`
}

type Publisher struct {
	R       *redis.Client
	Channel string
}

func NewPublisher(r *redis.Client, channel string) *Publisher {
	return &Publisher{R: r, Channel: channel}
}

// Snapshot caches the current match state and notifies subscribers.
// Cache and broadcast are best-effort relative to each other: a failed
// publish does not undo the snapshot.
func (p *Publisher) Snapshot(ctx context.Context, m *match.Match) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := p.R.Set(ctx, key(m.ID), b, snapshotTTL).Err(); err != nil {
		return err
	}

	upd, err := json.Marshal(WSUpdate{MatchID: m.ID, Payload: json.RawMessage(b)})
	if err != nil {
		return err
	}
	return p.R.Publish(ctx, p.Channel, upd).Err()
}
