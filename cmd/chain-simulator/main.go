package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/chain-simulator/sim"
	"github.com/Akhil-Rawat/Plexo/internal/shared/config"
	"github.com/Akhil-Rawat/Plexo/internal/shared/logger"
)

var chainRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "chain_requests_total",
	Help: "Chain simulator requests by path and status",
}, []string{"path", "status"})

// countRequests wraps the simulator router to label every call with
// its path and response status.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		chainRequests.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(chainRequests)

	s := sim.New(log)

	// ==== metrics mux (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("chain simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ==== public mux (/chain/*)
	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("chain simulator (public) running",
		zap.String("addr", publicAddr),
		zap.Int("confirm_rate_percent", sim.ConfirmRate),
	)
	if err := http.ListenAndServe(publicAddr, countRequests(s.Router())); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
