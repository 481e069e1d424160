// Package http is the REST surface of the match-service.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/match"
	"github.com/Akhil-Rawat/Plexo/internal/match-service/dto"
)

// Feed caches snapshots for the read side. Nil-able in tests.
type Feed interface {
	Snapshot(ctx context.Context, m *match.Match) error
}

type Server struct {
	log    *zap.Logger
	engine *match.Engine
	feed   Feed

	// metric callbacks, wired from main
	OnBetPlaced     func()
	OnMoveApplied   func()
	OnMatchFinished func()
	OnPayoutClaimed func()
}

func NewServer(log *zap.Logger, engine *match.Engine, feed Feed) *Server {
	return &Server{log: log, engine: engine, feed: feed}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/matches", s.createMatch)
		r.Get("/matches", s.listMatches)
		r.Get("/matches/{id}", s.getMatch)
		r.Post("/matches/{id}/join", s.joinMatch)
		r.Post("/matches/{id}/moves", s.submitMove)
		r.Post("/matches/{id}/bets", s.placeBet)
		r.Get("/matches/{id}/bets", s.listBets)
		r.Get("/matches/{id}/stats", s.stats)
		r.Post("/matches/{id}/result", s.reportResult)
		r.Post("/matches/{id}/claim", s.claim)
		r.Post("/matches/{id}/refund", s.refund)
		r.Post("/matches/{id}/cancel", s.cancel)
		r.Get("/bets", s.betsByBettor)
		r.Post("/seed", s.seed)
	})
	return r
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.engine.Create(r.Context(), req.Creator, req.Metadata)
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusCreated, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	f := match.Filter{Status: match.Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad limit"})
			return
		}
		f.Limit = n
	}
	ms, err := s.engine.List(r.Context(), f)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMatches(ms, time.Now().UTC()))
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) joinMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinMatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.engine.Join(r.Context(), chi.URLParam(r, "id"), req.Opponent)
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusOK, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) submitMove(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.engine.SubmitMove(r.Context(), chi.URLParam(r, "id"), req.Player, req.Position)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if s.OnMoveApplied != nil {
		s.OnMoveApplied()
	}
	if m.Status == match.StatusFinished && s.OnMatchFinished != nil {
		s.OnMatchFinished()
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusOK, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	matchID := chi.URLParam(r, "id")
	b, err := s.engine.PlaceBet(r.Context(), matchID, req.Bettor, game.Side(req.Side), req.AmountLamports)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if s.OnBetPlaced != nil {
		s.OnBetPlaced()
	}
	if m, err := s.engine.Get(r.Context(), matchID); err == nil {
		s.snapshot(r.Context(), m)
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.engine.BetsForMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	if bets == nil {
		bets = []*match.Bet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) betsByBettor(w http.ResponseWriter, r *http.Request) {
	bettor := r.URL.Query().Get("bettor")
	if bettor == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bettor required"})
		return
	}
	bets, err := s.engine.BetsForBettor(r.Context(), bettor)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if bets == nil {
		bets = []*match.Bet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) reportResult(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportResultRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.engine.ReportResult(r.Context(), chi.URLParam(r, "id"), req.Reporter, game.Outcome(req.Winner))
	if err != nil {
		s.httpError(w, err)
		return
	}
	if s.OnMatchFinished != nil {
		s.OnMatchFinished()
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusOK, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimRequest
	if !s.decode(w, r, &req) {
		return
	}
	rcpt, err := s.engine.ClaimPayout(r.Context(), chi.URLParam(r, "id"), req.Bettor)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if s.OnPayoutClaimed != nil {
		s.OnPayoutClaimed()
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimRequest
	if !s.decode(w, r, &req) {
		return
	}
	rcpt, err := s.engine.ClaimRefund(r.Context(), chi.URLParam(r, "id"), req.Bettor)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if s.OnPayoutClaimed != nil {
		s.OnPayoutClaimed()
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.engine.Cancel(r.Context(), chi.URLParam(r, "id"), req.Requester)
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusOK, dto.FromMatch(m, time.Now().UTC()))
}

func (s *Server) seed(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.SeedDemo(r.Context())
	if err != nil {
		s.httpError(w, err)
		return
	}
	s.snapshot(r.Context(), m)
	writeJSON(w, http.StatusCreated, dto.FromMatch(m, time.Now().UTC()))
}

type validatable interface {
	Validate() error
}

// decode parses and validates the request body, writing the 400 itself
// when something is off.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// snapshot refreshes the read-side cache; failures are logged, never
// surfaced to the caller.
func (s *Server) snapshot(ctx context.Context, m *match.Match) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Snapshot(ctx, m); err != nil {
		s.log.Warn("feed snapshot", zap.String("matchId", m.ID), zap.Error(err))
	}
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	var ext *match.ExternalError
	switch {
	case errors.Is(err, match.ErrMatchNotFound), errors.Is(err, match.ErrBetNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, match.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, match.ErrInvalidMove), errors.Is(err, match.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, match.ErrInvalidState),
		errors.Is(err, match.ErrNotYourTurn),
		errors.Is(err, match.ErrBettingClosed),
		errors.Is(err, match.ErrMatchNotFinished),
		errors.Is(err, match.ErrNoWinner),
		errors.Is(err, match.ErrLosingBet),
		errors.Is(err, match.ErrAlreadyClaimed):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &ext):
		s.log.Error("upstream failure", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "upstream unavailable"})
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
