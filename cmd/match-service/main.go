package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/match"
	"github.com/Akhil-Rawat/Plexo/internal/match-service/chain"
	mfeed "github.com/Akhil-Rawat/Plexo/internal/match-service/feed"
	api "github.com/Akhil-Rawat/Plexo/internal/match-service/http"
	kpub "github.com/Akhil-Rawat/Plexo/internal/match-service/producer"
	"github.com/Akhil-Rawat/Plexo/internal/match-service/repo"
	"github.com/Akhil-Rawat/Plexo/internal/shared/cache"
	"github.com/Akhil-Rawat/Plexo/internal/shared/config"
	"github.com/Akhil-Rawat/Plexo/internal/shared/db"
	"github.com/Akhil-Rawat/Plexo/internal/shared/kafka"
	"github.com/Akhil-Rawat/Plexo/internal/shared/logger"
	"github.com/Akhil-Rawat/Plexo/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	store := repo.NewPostgres(pg)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatal("pg schema", zap.Error(err))
	}

	// Redis (read-side snapshots + ws broadcast)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers, one per lifecycle topic
	createdW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchCreated)
	placedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	finishedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchFinished)
	claimedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutClaimed)
	defer createdW.Close()
	defer placedW.Close()
	defer finishedW.Close()
	defer claimedW.Close()

	// On-chain authority: in-process mock or the chain-simulator
	var authority match.Authority
	if cfg.ChainMode == "http" {
		authority = chain.NewClient(cfg.ChainURL)
		log.Info("chain authority", zap.String("mode", "http"), zap.String("url", cfg.ChainURL))
	} else {
		authority = chain.NewMock()
		log.Info("chain authority", zap.String("mode", "mock"))
	}

	engine := match.NewEngine(log,
		store,
		authority,
		kpub.NewKafkaPublisher(createdW, placedW, finishedW, claimedW),
		match.Rules{
			MinBet:       cfg.MinBetLamports,
			MaxBet:       cfg.MaxBetLamports,
			FeePercent:   cfg.PlatformFeePercent,
			LockDuration: time.Duration(cfg.LockTimeSeconds) * time.Second,
			BoardCells:   cfg.BoardCells,
		})

	srv := api.NewServer(log, engine, mfeed.NewPublisher(rdb, cfg.RedisPubSubChannel))

	// Domain counters
	betsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_bets_placed_total", Help: "bets accepted by the API"})
	movesApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_moves_applied_total", Help: "moves applied to boards"})
	matchesFinished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_finished_total", Help: "matches settled"})
	payoutsClaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_payouts_claimed_total", Help: "successful payout claims"})
	prometheus.MustRegister(betsPlaced, movesApplied, matchesFinished, payoutsClaimed)
	srv.OnBetPlaced = betsPlaced.Inc
	srv.OnMoveApplied = movesApplied.Inc
	srv.OnMatchFinished = matchesFinished.Inc
	srv.OnPayoutClaimed = payoutsClaimed.Inc

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	addr := ":" + cfg.HTTPPort
	log.Info("match-service listening", zap.String("addr", addr))
	apiSrv := &http.Server{Addr: addr, Handler: srv.Router()}
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
