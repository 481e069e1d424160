// Package pool tracks the lamports staked on each side of a match and
// computes proportional payouts when the match settles.
package pool

import (
	"errors"
	"fmt"

	"github.com/Akhil-Rawat/Plexo/internal/game"
)

// ErrInvalidAmount rejects stakes outside the configured range or
// amounts that would not keep the ledger consistent.
var ErrInvalidAmount = errors.New("invalid amount")

// Ledger is the running total of stakes per side. Amounts are lamports.
type Ledger struct {
	SideA int64 `json:"pool_player1"`
	SideB int64 `json:"pool_player2"`
	Total int64 `json:"total_pool"`
}

// Add credits amount to the given side. Amounts must be positive; the
// caller is responsible for min/max stake policy.
func (l *Ledger) Add(side game.Side, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	switch side {
	case game.SidePlayer1:
		l.SideA += amount
	case game.SidePlayer2:
		l.SideB += amount
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidAmount, side)
	}
	l.Total += amount
	return nil
}

// Remove debits amount from the given side, used when an on-chain
// stake is rejected after being provisionally counted.
func (l *Ledger) Remove(side game.Side, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	switch side {
	case game.SidePlayer1:
		if amount > l.SideA {
			return fmt.Errorf("%w: %d exceeds side pool %d", ErrInvalidAmount, amount, l.SideA)
		}
		l.SideA -= amount
	case game.SidePlayer2:
		if amount > l.SideB {
			return fmt.Errorf("%w: %d exceeds side pool %d", ErrInvalidAmount, amount, l.SideB)
		}
		l.SideB -= amount
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidAmount, side)
	}
	l.Total -= amount
	return nil
}

// ForSide returns the stake accumulated on one side.
func (l *Ledger) ForSide(side game.Side) int64 {
	switch side {
	case game.SidePlayer1:
		return l.SideA
	case game.SidePlayer2:
		return l.SideB
	}
	return 0
}

// ForOutcome returns the pool that backs the winning outcome. Draws
// have no winning pool.
func (l *Ledger) ForOutcome(o game.Outcome) int64 {
	if side, ok := o.WinningSide(); ok {
		return l.ForSide(side)
	}
	return 0
}

// Odds returns the decimal multiplier a 1-lamport stake on side would
// currently pay before fees. An unstaked side quotes even odds of 1.
func (l *Ledger) Odds(side game.Side) float64 {
	staked := l.ForSide(side)
	if staked == 0 {
		return 1
	}
	return float64(l.Total) / float64(staked)
}
