package match

import "context"

// Filter narrows ListMatches. Zero value lists everything.
type Filter struct {
	Status Status
	Limit  int
}

// Store persists matches and bets. Implementations must return
// ErrMatchNotFound / ErrBetNotFound (wrapped is fine) for missing rows
// and ErrAlreadyClaimed when MarkBetClaimed hits an already claimed
// bet, so the engine's errors.Is checks keep working.
type Store interface {
	CreateMatch(ctx context.Context, m *Match) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpdateMatch(ctx context.Context, m *Match) error
	ListMatches(ctx context.Context, f Filter) ([]*Match, error)

	CreateBet(ctx context.Context, b *Bet) error
	GetBet(ctx context.Context, id string) (*Bet, error)
	ListBetsByMatch(ctx context.Context, matchID string) ([]*Bet, error)
	ListBetsByBettor(ctx context.Context, bettor string) ([]*Bet, error)
	UpdateBetStatus(ctx context.Context, betID string, status BetStatus, reason string) error
	MarkBetClaimed(ctx context.Context, betID string, payout int64, txSignature string) error
}
