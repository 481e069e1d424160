package match

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/game"
)

// demoLockDuration keeps the seeded match bettable long enough to
// click through a demo.
const demoLockDuration = 600 * time.Second

// SeedDemo creates a ready-to-bet LIVE match with two demo wallets and
// a few confirmed stakes on each side.
func (e *Engine) SeedDemo(ctx context.Context) (*Match, error) {
	m, err := e.Create(ctx, "demo-alice", "seeded demo match")
	if err != nil {
		return nil, err
	}
	if _, err := e.Join(ctx, m.ID, "demo-bob"); err != nil {
		return nil, err
	}

	stakes := []struct {
		bettor string
		side   game.Side
		amount int64
	}{
		{"demo-carol", game.SidePlayer1, 2_000_000_000},
		{"demo-dave", game.SidePlayer2, 1_000_000_000},
		{"demo-erin", game.SidePlayer1, 500_000_000},
	}
	for _, s := range stakes {
		b, err := e.PlaceBet(ctx, m.ID, s.bettor, s.side, s.amount)
		if err != nil {
			return nil, err
		}
		// Demo bets skip the async worker round trip.
		if err := e.ConfirmBet(ctx, m.ID, b.ID, BetConfirmed, "seeded"); err != nil {
			return nil, err
		}
	}

	// Reopen the betting window with the longer demo horizon.
	l := e.lockFor(m.ID)
	l.Lock()
	defer l.Unlock()
	m, err = e.store.GetMatch(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	lockAt := time.Now().UTC().Add(demoLockDuration)
	m.LockTime = &lockAt
	m.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}

	e.log.Info("demo match seeded", zap.String("matchId", m.ID))
	return m, nil
}
