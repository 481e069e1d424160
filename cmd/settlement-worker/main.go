package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	simdto "github.com/Akhil-Rawat/Plexo/internal/chain-simulator/dto"
	"github.com/Akhil-Rawat/Plexo/internal/match"
	"github.com/Akhil-Rawat/Plexo/internal/match-service/chain"
	"github.com/Akhil-Rawat/Plexo/internal/match-service/repo"
	"github.com/Akhil-Rawat/Plexo/internal/shared/config"
	"github.com/Akhil-Rawat/Plexo/internal/shared/db"
	"github.com/Akhil-Rawat/Plexo/internal/shared/kafka"
	"github.com/Akhil-Rawat/Plexo/internal/shared/logger"
	"github.com/Akhil-Rawat/Plexo/internal/shared/metrics"
	ev "github.com/Akhil-Rawat/Plexo/pkg/contracts/events"
)

// noopPublisher satisfies match.Publisher for the worker, which only
// applies confirmations and never emits lifecycle events through the
// engine.
type noopPublisher struct{}

func (noopPublisher) PublishMatchCreated(context.Context, ev.MatchCreated) error   { return nil }
func (noopPublisher) PublishBetPlaced(context.Context, ev.BetPlaced) error         { return nil }
func (noopPublisher) PublishMatchFinished(context.Context, ev.MatchFinished) error { return nil }
func (noopPublisher) PublishPayoutClaimed(context.Context, ev.PayoutClaimed) error { return nil }

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	store := repo.NewPostgres(pg)
	// ConfirmBet never reaches the authority; the chain call happens
	// below in callChainConfirm, so a mock satisfies the dependency.
	engine := match.NewEngine(log, store, chain.NewMock(), noopPublisher{}, match.Rules{
		MinBet:       cfg.MinBetLamports,
		MaxBet:       cfg.MaxBetLamports,
		FeePercent:   cfg.PlatformFeePercent,
		LockDuration: time.Duration(cfg.LockTimeSeconds) * time.Second,
		BoardCells:   cfg.BoardCells,
	})

	// Consumes bet_placed, publishes bet_confirmed, parks poison
	// messages on the DLQ.
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "settlement-worker",
		Topic:    cfg.TopicBetPlaced,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	confirmedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetConfirmed)
	defer confirmedWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicBetPlacedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlacedDLQ)
		defer dlqWriter.Close()
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_bets_consumed_total", Help: "bet_placed events consumed"})
	confirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_bet_verdicts_total", Help: "verdicts applied"}, []string{"verdict"})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_dlq_total", Help: "events parked on the DLQ"})
	prometheus.MustRegister(consumed, confirmed, dlq)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicBetPlaced),
		zap.String("publish", cfg.TopicBetConfirmed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publishConfirmed := func(ctx context.Context, key string, payload []byte) error {
		return kafka.WriteJSON(ctx, confirmedWriter, key, payload)
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("shutting down")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		consumed.Inc()

		var placed ev.BetPlaced
		if jerr := json.Unmarshal(msg.Value, &placed); jerr != nil {
			log.Error("unmarshal bet_placed", zap.Error(jerr))
			continue
		}

		verdict, err := processOne(ctx, log, cfg, engine, publishConfirmed, dlqWriter, &placed)
		if err != nil {
			log.Error("process bet", zap.String("betId", placed.BetID), zap.Error(err))
			if errors.Is(err, errParkedDLQ) {
				dlq.Inc()
			}
			// backoff to avoid flooding a struggling dependency
			time.Sleep(500 * time.Millisecond)
			continue
		}
		confirmed.WithLabelValues(strings.ToLower(verdict)).Inc()
	}
}

var errParkedDLQ = errors.New("parked on dlq")

// processOne runs one bet through confirmation:
// 1. asks the chain authority whether the stake transaction landed
// 2. applies the verdict to the bet (rejections back the stake out)
// 3. publishes bet_confirmed
func processOne(
	ctx context.Context,
	log *zap.Logger,
	cfg config.Config,
	engine *match.Engine,
	publishConfirmed func(ctx context.Context, key string, payload []byte) error,
	dlqWriter *kafkago.Writer,
	placed *ev.BetPlaced,
) (string, error) {
	cresp, err := callChainConfirm(ctx, cfg, placed)
	if err != nil {
		const retries = 3
		for i := 0; i < retries; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			if cresp, err = callChainConfirm(ctx, cfg, placed); err == nil {
				break
			}
		}
		if err != nil {
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, placed.BetID, mustJSON(placed))
				return "", fmt.Errorf("%w: %v", errParkedDLQ, err)
			}
			return "", err
		}
	}

	status := match.BetConfirmed
	if strings.ToUpper(cresp.Status) != simdto.StatusConfirmed {
		status = match.BetRejected
	}
	if err := engine.ConfirmBet(ctx, placed.MatchID, placed.BetID, status, cresp.Reason); err != nil {
		return "", err
	}
	if status == match.BetRejected {
		// place_bet escrowed the stake up front; a rejected verdict
		// releases it. Best effort: the ledger is already corrected.
		if err := callChainRefund(ctx, cfg, placed); err != nil {
			log.Warn("chain refund after rejection",
				zap.String("betId", placed.BetID),
				zap.Error(err),
			)
		}
	}

	evc := ev.BetConfirmed{
		BetID:       placed.BetID,
		MatchID:     placed.MatchID,
		Status:      string(status),
		Reason:      cresp.Reason,
		TxSignature: cresp.TxSignature,
		Ts:          time.Now(),
	}
	if err := publishConfirmed(ctx, placed.BetID, mustJSON(evc)); err != nil {
		return "", err
	}

	log.Info("bet verdict applied",
		zap.String("betId", placed.BetID),
		zap.String("status", string(status)),
	)
	return string(status), nil
}

// callChainConfirm asks the chain-simulator whether the stake's
// transaction reached finality.
func callChainConfirm(ctx context.Context, cfg config.Config, p *ev.BetPlaced) (*simdto.ConfirmBetResp, error) {
	body, _ := json.Marshal(simdto.ConfirmBetReq{
		BetID:          p.BetID,
		MatchID:        p.MatchID,
		Bettor:         p.Bettor,
		AmountLamports: p.AmountLamports,
	})
	url := cfg.ChainURL + "/chain/confirm_bet"

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.New("chain http " + resp.Status)
	}
	var out simdto.ConfirmBetResp
	if jerr := json.NewDecoder(resp.Body).Decode(&out); jerr != nil {
		return nil, jerr
	}
	return &out, nil
}

// callChainRefund releases escrow held for a bet that did not confirm.
func callChainRefund(ctx context.Context, cfg config.Config, p *ev.BetPlaced) error {
	body, _ := json.Marshal(simdto.RefundBetReq{
		MatchID:        p.MatchID,
		Bettor:         p.Bettor,
		AmountLamports: p.AmountLamports,
	})
	url := cfg.ChainURL + "/chain/refund_bet"

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("chain http " + resp.Status)
	}
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
