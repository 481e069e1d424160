// Package producer publishes match lifecycle events to Kafka,
// implementing match.Publisher.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Akhil-Rawat/Plexo/pkg/contracts/events"
)

type KafkaPublisher struct {
	MatchCreated  *kafka.Writer
	BetPlaced     *kafka.Writer
	MatchFinished *kafka.Writer
	PayoutClaimed *kafka.Writer
}

func NewKafkaPublisher(created, placed, finished, claimed *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{
		MatchCreated:  created,
		BetPlaced:     placed,
		MatchFinished: finished,
		PayoutClaimed: claimed,
	}
}

func (p *KafkaPublisher) PublishMatchCreated(ctx context.Context, e events.MatchCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.MatchCreated, e.MatchID, e)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.BetPlaced, e.MatchID, e)
}

func (p *KafkaPublisher) PublishMatchFinished(ctx context.Context, e events.MatchFinished) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.MatchFinished, e.MatchID, e)
}

func (p *KafkaPublisher) PublishPayoutClaimed(ctx context.Context, e events.PayoutClaimed) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.PayoutClaimed, e.MatchID, e)
}

// Keyed by matchId so one match's events stay ordered per partition.
func write(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, _ := json.Marshal(v)
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}
