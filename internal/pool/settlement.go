package pool

import (
	"fmt"
	"math/big"
)

// Payout computes what a single winning bet collects.
//
// The fee is taken from the whole pool first, then the net pool is
// split pro rata across the winning side. All divisions floor, so the
// sum of every winner's payout never exceeds the net pool; rounding
// dust stays behind. When nobody backed the winning side the bet is
// simply refunded.
//
// The intermediate product netPool*betAmount can exceed 63 bits with
// stakes near the maximum, so the pro-rata step runs on big.Int.
func Payout(betAmount, winningPool, totalPool int64, feePercent int64) (int64, error) {
	if betAmount <= 0 || totalPool <= 0 || winningPool < 0 || betAmount > totalPool {
		return 0, fmt.Errorf("%w: bet=%d winning=%d total=%d", ErrInvalidAmount, betAmount, winningPool, totalPool)
	}
	if feePercent < 0 || feePercent > 100 {
		return 0, fmt.Errorf("%w: fee percent %d", ErrInvalidAmount, feePercent)
	}

	if winningPool == 0 {
		// Nobody to split against: refund the stake.
		return betAmount, nil
	}
	if betAmount > winningPool {
		return 0, fmt.Errorf("%w: bet %d exceeds winning pool %d", ErrInvalidAmount, betAmount, winningPool)
	}

	fee := totalPool * feePercent / 100
	netPool := totalPool - fee

	num := new(big.Int).Mul(big.NewInt(netPool), big.NewInt(betAmount))
	num.Div(num, big.NewInt(winningPool))
	if !num.IsInt64() {
		return 0, fmt.Errorf("%w: payout overflows", ErrInvalidAmount)
	}
	return num.Int64(), nil
}

// Fee returns the platform cut that settlement keeps from a pool.
func Fee(totalPool, feePercent int64) int64 {
	if totalPool <= 0 || feePercent <= 0 {
		return 0
	}
	return totalPool * feePercent / 100
}
