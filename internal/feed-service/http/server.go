// Package httpapi is the read side of the platform: cached match
// snapshots over REST plus the websocket endpoint for live updates.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/feed-service/cache"
	"github.com/Akhil-Rawat/Plexo/internal/feed-service/ws"
)

const readThroughTTL = 30 * time.Second

type API struct {
	Log      *zap.Logger
	Cache    *cache.Cache
	Hub      *ws.Hub
	MatchURL string // match-service base URL for cache misses
	HTTP     *http.Client

	// OnServed reports where a read was answered from: "cache",
	// "upstream" or "miss". Wired to metrics in main.
	OnServed func(source string)
}

func New(log *zap.Logger, c *cache.Cache, hub *ws.Hub, matchURL string) *API {
	return &API{
		Log:      log,
		Cache:    c,
		Hub:      hub,
		MatchURL: matchURL,
		HTTP:     &http.Client{Timeout: 2 * time.Second},
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/feed/matches/{id}", a.getMatch)
	r.Get("/ws", a.Hub.HandleWS)
	return r
}

// getMatch serves the cached snapshot, falling back to the
// match-service on a miss and refilling the cache.
func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, ok, err := a.Cache.Get(r.Context(), id)
	if err != nil {
		a.Log.Warn("snapshot cache get", zap.String("matchId", id), zap.Error(err))
	}
	if ok {
		a.served("cache")
		writeRaw(w, http.StatusOK, snap)
		return
	}

	body, status, err := a.fetchMatch(r, id)
	if err != nil {
		a.Log.Error("match-service fetch", zap.String("matchId", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "match-service unavailable"})
		return
	}
	if status == http.StatusNotFound {
		a.served("miss")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if status != http.StatusOK {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "match-service error"})
		return
	}

	if err := a.Cache.Set(r.Context(), id, body, readThroughTTL); err != nil {
		a.Log.Warn("snapshot cache refill", zap.String("matchId", id), zap.Error(err))
	}
	a.served("upstream")
	writeRaw(w, http.StatusOK, body)
}

func (a *API) served(source string) {
	if a.OnServed != nil {
		a.OnServed(source)
	}
}

func (a *API) fetchMatch(r *http.Request, id string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		a.MatchURL+"/v1/matches/"+id, nil)
	if err != nil {
		return nil, 0, err
	}
	res, err := a.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, res.StatusCode, nil
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
