package match

import (
	"errors"
	"fmt"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/pool"
)

// Sentinel errors returned by the Engine. The HTTP layer maps them to
// status codes with errors.Is, so every error leaving the engine wraps
// one of these (or ExternalError for upstream failures).
var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrBetNotFound      = errors.New("bet not found")
	ErrInvalidState     = errors.New("invalid match state")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBettingClosed    = errors.New("betting closed")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrMatchNotFinished = errors.New("match not finished")
	ErrNoWinner         = errors.New("no winner recorded")
	ErrLosingBet        = errors.New("bet did not win")
	ErrAlreadyClaimed   = errors.New("payout already claimed")

	// Re-exported so callers can match board and stake failures without
	// importing the inner packages.
	ErrInvalidMove   = game.ErrInvalidMove
	ErrInvalidAmount = pool.ErrInvalidAmount
)

// ExternalError wraps a failure from an upstream dependency (chain
// authority, broker) so transport code can distinguish it from domain
// rejections.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func external(op string, err error) error {
	return &ExternalError{Op: op, Err: err}
}
