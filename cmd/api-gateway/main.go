package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/shared/config"
	"github.com/Akhil-Rawat/Plexo/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

// addPrefix rewrites the request path before handing it to the proxy,
// so public /api/* routes map onto the services' /v1/* routes.
func addPrefix(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = prefix + r.URL.Path
		h.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	match := rp(cfg.MatchServiceURL)
	feed := rp(cfg.FeedServiceURL)

	mux := http.NewServeMux()

	// write path (ex.: /api/matches/* -> match-service /v1/matches/*)
	mux.Handle("/api/matches", http.StripPrefix("/api", addPrefix("/v1", match)))
	mux.Handle("/api/matches/", http.StripPrefix("/api", addPrefix("/v1", match)))
	mux.Handle("/api/bets", http.StripPrefix("/api", addPrefix("/v1", match)))
	mux.Handle("/api/seed", http.StripPrefix("/api", addPrefix("/v1", match)))

	// read path (ex.: /api/feed/* -> feed-service /v1/feed/*)
	mux.Handle("/api/feed/", http.StripPrefix("/api", addPrefix("/v1", feed)))

	// websocket upgrade goes straight through
	mux.Handle("/ws", feed)

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening",
		zap.String("addr", addr),
		zap.String("match", cfg.MatchServiceURL),
		zap.String("feed", cfg.FeedServiceURL),
	)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
