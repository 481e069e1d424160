package dto

import (
	"time"

	"github.com/Akhil-Rawat/Plexo/internal/match"
	"github.com/Akhil-Rawat/Plexo/internal/pool"
)

// MatchResponse is the API view of a match. Status is the effective
// one: LIVE matches past their lock time read as BETTING_CLOSED.
type MatchResponse struct {
	MatchID     string             `json:"match_id"`
	Creator     string             `json:"creator"`
	Opponent    *string            `json:"opponent,omitempty"`
	Status      string             `json:"status"`
	Moves       []match.MoveRecord `json:"moves"`
	Pool        pool.Ledger        `json:"pool"`
	LockTime    *time.Time         `json:"lock_time,omitempty"`
	Winner      *string            `json:"winner,omitempty"`
	WinningLine []int              `json:"winning_line,omitempty"`
	PoolAddress string             `json:"pool_address"`
	Metadata    string             `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func FromMatch(m *match.Match, now time.Time) MatchResponse {
	resp := MatchResponse{
		MatchID:     m.ID,
		Creator:     m.Creator,
		Opponent:    m.Opponent,
		Status:      string(m.EffectiveStatus(now)),
		Moves:       m.Moves,
		Pool:        m.Pool,
		LockTime:    m.LockTime,
		PoolAddress: m.PoolAddress,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if resp.Moves == nil {
		resp.Moves = []match.MoveRecord{}
	}
	if m.Winner != nil {
		w := string(*m.Winner)
		resp.Winner = &w
	}
	if m.WinningLine != nil {
		resp.WinningLine = m.WinningLine[:]
	}
	return resp
}

func FromMatches(ms []*match.Match, now time.Time) []MatchResponse {
	out := make([]MatchResponse, len(ms))
	for i, m := range ms {
		out[i] = FromMatch(m, now)
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}
