package chain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Akhil-Rawat/Plexo/internal/game"
)

// Mock is an in-process Authority that accepts everything and mints
// deterministic-looking addresses and signatures. Used when CHAIN_MODE
// is mock and in tests.
type Mock struct {
	mu      sync.Mutex
	matches map[string]string // matchID -> pool address
}

func NewMock() *Mock {
	return &Mock{matches: make(map[string]string)}
}

func (m *Mock) CreateMatch(_ context.Context, matchID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr, ok := m.matches[matchID]; ok {
		return addr, nil
	}
	addr := "pool" + randHex(20)
	m.matches[matchID] = addr
	return addr, nil
}

func (m *Mock) JoinMatch(_ context.Context, matchID, _ string) error {
	return m.known(matchID)
}

func (m *Mock) PlaceBet(_ context.Context, matchID, _ string, _ game.Side, _ int64) (string, error) {
	if err := m.known(matchID); err != nil {
		return "", err
	}
	return randHex(32), nil
}

func (m *Mock) ReportResult(_ context.Context, matchID string, _ game.Outcome) error {
	return m.known(matchID)
}

func (m *Mock) Claim(_ context.Context, matchID, _ string, _ int64) (string, error) {
	if err := m.known(matchID); err != nil {
		return "", err
	}
	return randHex(32), nil
}

func (m *Mock) Refund(_ context.Context, matchID, _ string, _ int64) (string, error) {
	if err := m.known(matchID); err != nil {
		return "", err
	}
	return randHex(32), nil
}

func (m *Mock) known(matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[matchID]; !ok {
		return fmt.Errorf("unknown match %s on chain", matchID)
	}
	return nil
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
