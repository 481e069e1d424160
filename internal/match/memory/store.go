// Package memory is a map-backed match.Store used by tests and by
// local runs without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Akhil-Rawat/Plexo/internal/match"
)

type Store struct {
	mu      sync.RWMutex
	matches map[string]*match.Match
	bets    map[string]*match.Bet
}

func NewStore() *Store {
	return &Store{
		matches: make(map[string]*match.Match),
		bets:    make(map[string]*match.Bet),
	}
}

func (s *Store) CreateMatch(_ context.Context, m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	s.matches[m.ID] = copyMatch(m)
	return nil
}

func (s *Store) GetMatch(_ context.Context, id string) (*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, id)
	}
	return copyMatch(m), nil
}

func (s *Store) UpdateMatch(_ context.Context, m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		return fmt.Errorf("%w: %s", match.ErrMatchNotFound, m.ID)
	}
	s.matches[m.ID] = copyMatch(m)
	return nil
}

func (s *Store) ListMatches(_ context.Context, f match.Filter) ([]*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*match.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		out = append(out, copyMatch(m))
	}
	// Newest first, stable for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateBet(_ context.Context, b *match.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[b.ID]; ok {
		return fmt.Errorf("bet %s already exists", b.ID)
	}
	s.bets[b.ID] = copyBet(b)
	return nil
}

func (s *Store) GetBet(_ context.Context, id string) (*match.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", match.ErrBetNotFound, id)
	}
	return copyBet(b), nil
}

func (s *Store) ListBetsByMatch(_ context.Context, matchID string) ([]*match.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*match.Bet
	for _, b := range s.bets {
		if b.MatchID == matchID {
			out = append(out, copyBet(b))
		}
	}
	sortBets(out)
	return out, nil
}

func (s *Store) ListBetsByBettor(_ context.Context, bettor string) ([]*match.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*match.Bet
	for _, b := range s.bets {
		if b.Bettor == bettor {
			out = append(out, copyBet(b))
		}
	}
	sortBets(out)
	return out, nil
}

func (s *Store) UpdateBetStatus(_ context.Context, betID string, status match.BetStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[betID]
	if !ok {
		return fmt.Errorf("%w: %s", match.ErrBetNotFound, betID)
	}
	b.Status = status
	b.StatusReason = reason
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) MarkBetClaimed(_ context.Context, betID string, payout int64, txSignature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[betID]
	if !ok {
		return fmt.Errorf("%w: %s", match.ErrBetNotFound, betID)
	}
	if b.Claimed {
		return fmt.Errorf("%w: %s", match.ErrAlreadyClaimed, betID)
	}
	b.Claimed = true
	b.Payout = &payout
	b.TxSignature = txSignature
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func sortBets(bets []*match.Bet) {
	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].CreatedAt.Before(bets[j].CreatedAt)
	})
}

// copies keep callers from mutating stored state through returned
// pointers.

func copyMatch(m *match.Match) *match.Match {
	cp := *m
	cp.Moves = append([]match.MoveRecord(nil), m.Moves...)
	if m.Opponent != nil {
		v := *m.Opponent
		cp.Opponent = &v
	}
	if m.LockTime != nil {
		v := *m.LockTime
		cp.LockTime = &v
	}
	if m.Winner != nil {
		v := *m.Winner
		cp.Winner = &v
	}
	if m.WinningLine != nil {
		v := *m.WinningLine
		cp.WinningLine = &v
	}
	return &cp
}

func copyBet(b *match.Bet) *match.Bet {
	cp := *b
	if b.Payout != nil {
		v := *b.Payout
		cp.Payout = &v
	}
	return &cp
}
