package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/feed-service/cache"
	httpapi "github.com/Akhil-Rawat/Plexo/internal/feed-service/http"
	"github.com/Akhil-Rawat/Plexo/internal/feed-service/ws"
	scache "github.com/Akhil-Rawat/Plexo/internal/shared/cache"
	"github.com/Akhil-Rawat/Plexo/internal/shared/config"
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

	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Browser clients connect straight to /ws; the gateway fronts the
	// REST read path.
	hub := ws.NewHub(func(r *http.Request) bool { return true })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := httpapi.New(log, cache.New(rdb), hub, cfg.MatchServiceURL)

	feedRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_requests_total",
		Help: "feed reads served, by source",
	}, []string{"source"}) // cache | upstream | miss
	prometheus.MustRegister(feedRequests)
	api.OnServed = func(source string) { feedRequests.WithLabelValues(source).Inc() }

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	log.Info("feed-service listening",
		zap.String("port", cfg.HTTPPort),
		zap.String("channel", cfg.RedisPubSubChannel),
	)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, api.Router()); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}
