// Package sim is a stand-in for the on-chain escrow program. It keeps
// pool accounts in memory, mints fake transaction signatures and
// randomly rejects a slice of bet confirmations so the settlement
// worker's failure path gets exercised locally.
package sim

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	mrand "math/rand"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/chain-simulator/dto"
)

// ConfirmRate is the percentage of bet confirmations that succeed.
const ConfirmRate = 90

type poolAccount struct {
	Address  string
	Creator  string
	Opponent string
	Winner   string
	Escrow   int64 // lamports currently held
}

type Simulator struct {
	log *zap.Logger

	mu    sync.Mutex
	pools map[string]*poolAccount
}

func New(log *zap.Logger) *Simulator {
	return &Simulator{
		log:   log,
		pools: make(map[string]*poolAccount),
	}
}

func (s *Simulator) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chain/create_match", s.createMatch)
	mux.HandleFunc("/chain/join_match", s.joinMatch)
	mux.HandleFunc("/chain/place_bet", s.placeBet)
	mux.HandleFunc("/chain/report_result", s.reportResult)
	mux.HandleFunc("/chain/claim", s.claim)
	mux.HandleFunc("/chain/refund_bet", s.refundBet)
	mux.HandleFunc("/chain/confirm_bet", s.confirmBet)
	return mux
}

func (s *Simulator) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.Creator == "" {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	if !ok {
		p = &poolAccount{Address: "pool" + randHex(20), Creator: req.Creator}
		s.pools[req.MatchID] = p
	}
	addr := p.Address
	s.mu.Unlock()

	s.log.Info("pool created", zap.String("matchId", req.MatchID), zap.String("pool", addr))
	writeJSON(w, dto.CreateMatchResp{PoolAddress: addr})
}

func (s *Simulator) joinMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinMatchReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.Opponent == "" {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	if ok {
		p.Opponent = req.Opponent
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, dto.TxResp{TxSignature: randHex(32), Status: dto.StatusConfirmed})
}

func (s *Simulator) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.AmountLamports <= 0 {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	if ok {
		p.Escrow += req.AmountLamports
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}

	s.log.Info("stake escrowed",
		zap.String("matchId", req.MatchID),
		zap.String("bettor", req.Bettor),
		zap.Int64("amount", req.AmountLamports),
	)
	writeJSON(w, dto.TxResp{TxSignature: randHex(32), Status: dto.StatusConfirmed})
}

func (s *Simulator) reportResult(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportResultReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.Winner == "" {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	if ok {
		p.Winner = req.Winner
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, dto.TxResp{TxSignature: randHex(32), Status: dto.StatusConfirmed})
}

func (s *Simulator) claim(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.AmountLamports <= 0 {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	switch {
	case !ok:
		s.mu.Unlock()
		notFound(w)
		return
	case p.Winner == "":
		s.mu.Unlock()
		http.Error(w, "result not reported", http.StatusConflict)
		return
	case req.AmountLamports > p.Escrow:
		s.mu.Unlock()
		http.Error(w, "insufficient escrow", http.StatusConflict)
		return
	}
	p.Escrow -= req.AmountLamports
	s.mu.Unlock()

	s.log.Info("payout released",
		zap.String("matchId", req.MatchID),
		zap.String("bettor", req.Bettor),
		zap.Int64("amount", req.AmountLamports),
	)
	writeJSON(w, dto.TxResp{TxSignature: randHex(32), Status: dto.StatusConfirmed})
}

func (s *Simulator) refundBet(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundBetReq
	if !decode(w, r, &req) {
		return
	}
	if req.MatchID == "" || req.AmountLamports <= 0 {
		badRequest(w)
		return
	}

	s.mu.Lock()
	p, ok := s.pools[req.MatchID]
	if ok && req.AmountLamports <= p.Escrow {
		p.Escrow -= req.AmountLamports
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, dto.TxResp{TxSignature: randHex(32), Status: dto.StatusConfirmed})
}

// confirmBet simulates transaction finality: most land, some drop.
func (s *Simulator) confirmBet(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmBetReq
	if !decode(w, r, &req) {
		return
	}
	if req.BetID == "" {
		badRequest(w)
		return
	}

	resp := dto.ConfirmBetResp{
		Status:      dto.StatusConfirmed,
		TxSignature: randHex(32),
	}
	if mrand.Intn(100) >= ConfirmRate {
		resp.Status = dto.StatusRejected
		resp.Reason = "chain_congestion_mock"
	}
	writeJSON(w, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w)
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, "bad request", http.StatusBadRequest)
}

func notFound(w http.ResponseWriter) {
	http.Error(w, "unknown match", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
