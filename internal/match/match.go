// Package match holds the match lifecycle: creation, joining, move
// submission, betting and settlement. The Engine serializes state
// transitions per match; persistence and the on-chain authority sit
// behind small interfaces so the memory store and the simulator can
// stand in during tests.
package match

import (
	"fmt"
	"time"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/pool"
)

// Status is the stored lifecycle state of a match. BETTING_CLOSED is
// never stored: it is derived from LIVE once the lock time passes.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusLive          Status = "LIVE"
	StatusBettingClosed Status = "BETTING_CLOSED"
	StatusFinished      Status = "FINISHED"
	StatusCancelled     Status = "CANCELLED"
)

// MoveRecord is one applied move plus its position in the match history.
type MoveRecord struct {
	Side      game.Side `json:"side"`
	Position  int       `json:"position"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// Match is the persisted state of one match.
type Match struct {
	ID          string       `json:"match_id"`
	Creator     string       `json:"creator"`
	Opponent    *string      `json:"opponent,omitempty"`
	Status      Status       `json:"status"`
	Moves       []MoveRecord `json:"moves"`
	Pool        pool.Ledger  `json:"pool"`
	LockTime    *time.Time   `json:"lock_time,omitempty"`
	Winner      *game.Outcome `json:"winner,omitempty"`
	WinningLine *[3]int      `json:"winning_line,omitempty"`
	PoolAddress string       `json:"pool_address"`
	Metadata    string       `json:"metadata,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// EffectiveStatus folds the betting lock into the stored status: a LIVE
// match whose lock time has passed reads as BETTING_CLOSED.
func (m *Match) EffectiveStatus(now time.Time) Status {
	if m.Status == StatusLive && m.LockTime != nil && !now.Before(*m.LockTime) {
		return StatusBettingClosed
	}
	return m.Status
}

// BettingOpen reports whether new stakes are accepted right now. The
// window spans match creation up to the betting lock; there is no lock
// before the opponent joins.
func (m *Match) BettingOpen(now time.Time) bool {
	switch m.EffectiveStatus(now) {
	case StatusPending, StatusLive:
		return true
	}
	return false
}

// SideOf maps a wallet to the side it plays. The creator is always
// player1, the opponent player2. ok is false for spectators.
func (m *Match) SideOf(wallet string) (game.Side, bool) {
	if wallet == m.Creator {
		return game.SidePlayer1, true
	}
	if m.Opponent != nil && wallet == *m.Opponent {
		return game.SidePlayer2, true
	}
	return "", false
}

// NextSide returns which side moves next. Player1 opens and play
// alternates strictly.
func (m *Match) NextSide() game.Side {
	if len(m.Moves)%2 == 0 {
		return game.SidePlayer1
	}
	return game.SidePlayer2
}

// Board replays the stored moves onto a fresh board with the given
// cell count; zero means the default size.
func (m *Match) Board(cells int) (*game.Board, error) {
	b := game.New(cells, nil)
	for i, r := range m.Moves {
		if err := b.Apply(game.Move{Side: r.Side, Position: r.Position}); err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
	}
	return b, nil
}

// BetStatus follows the on-chain confirmation of a stake.
type BetStatus string

const (
	BetPending   BetStatus = "PENDING"
	BetConfirmed BetStatus = "CONFIRMED"
	BetRejected  BetStatus = "REJECTED"
)

// Bet is one stake on one side of a match.
type Bet struct {
	ID           string    `json:"bet_id"`
	MatchID      string    `json:"match_id"`
	Bettor       string    `json:"bettor"`
	Side         game.Side `json:"side"`
	Amount       int64     `json:"amount_lamports"`
	Status       BetStatus `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	Claimed      bool      `json:"claimed"`
	Payout       *int64    `json:"payout_lamports,omitempty"`
	TxSignature  string    `json:"tx_signature,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats is the aggregate betting view of one match.
type Stats struct {
	MatchID      string      `json:"match_id"`
	Status       Status      `json:"status"`
	Pool         pool.Ledger `json:"pool"`
	OddsPlayer1  float64     `json:"odds_player1"`
	OddsPlayer2  float64     `json:"odds_player2"`
	BetCount     int         `json:"bet_count"`
	Confirmed    int         `json:"confirmed_bets"`
	LockTime     *time.Time  `json:"lock_time,omitempty"`
	BettingOpen  bool        `json:"betting_open"`
}

// ClaimReceipt summarizes one successful payout claim.
type ClaimReceipt struct {
	MatchID     string   `json:"match_id"`
	Bettor      string   `json:"bettor"`
	Amount      int64    `json:"amount_lamports"`
	BetIDs      []string `json:"bet_ids"`
	TxSignature string   `json:"tx_signature"`
}
