package match_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/match"
	"github.com/Akhil-Rawat/Plexo/internal/match/memory"
	"github.com/Akhil-Rawat/Plexo/pkg/contracts/events"
)

// fakeChain is an Authority that always succeeds with canned values,
// unless failOp is set.
type fakeChain struct {
	failOp string
	calls  []string
}

func (f *fakeChain) fail(op string) error {
	f.calls = append(f.calls, op)
	if f.failOp == op {
		return errors.New("chain unavailable")
	}
	return nil
}

func (f *fakeChain) CreateMatch(_ context.Context, matchID, _ string) (string, error) {
	if err := f.fail("create"); err != nil {
		return "", err
	}
	return "pool-" + matchID, nil
}

func (f *fakeChain) JoinMatch(_ context.Context, _, _ string) error {
	return f.fail("join")
}

func (f *fakeChain) PlaceBet(_ context.Context, _, _ string, _ game.Side, _ int64) (string, error) {
	if err := f.fail("bet"); err != nil {
		return "", err
	}
	return "sig-bet", nil
}

func (f *fakeChain) ReportResult(_ context.Context, _ string, _ game.Outcome) error {
	return f.fail("report")
}

func (f *fakeChain) Claim(_ context.Context, _, _ string, _ int64) (string, error) {
	if err := f.fail("claim"); err != nil {
		return "", err
	}
	return "sig-claim", nil
}

func (f *fakeChain) Refund(_ context.Context, _, _ string, _ int64) (string, error) {
	if err := f.fail("refund"); err != nil {
		return "", err
	}
	return "sig-refund", nil
}

// capturePub records every published event.
type capturePub struct {
	created  []events.MatchCreated
	placed   []events.BetPlaced
	finished []events.MatchFinished
	claimed  []events.PayoutClaimed
}

func (p *capturePub) PublishMatchCreated(_ context.Context, e events.MatchCreated) error {
	p.created = append(p.created, e)
	return nil
}

func (p *capturePub) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *capturePub) PublishMatchFinished(_ context.Context, e events.MatchFinished) error {
	p.finished = append(p.finished, e)
	return nil
}

func (p *capturePub) PublishPayoutClaimed(_ context.Context, e events.PayoutClaimed) error {
	p.claimed = append(p.claimed, e)
	return nil
}

func defaultRules() match.Rules {
	return match.Rules{
		MinBet:       10_000_000,
		MaxBet:       10_000_000_000,
		FeePercent:   2,
		LockDuration: 300 * time.Second,
	}
}

func newTestEngine(t *testing.T, rules match.Rules) (*match.Engine, *fakeChain, *capturePub) {
	t.Helper()
	chain := &fakeChain{}
	pub := &capturePub{}
	e := match.NewEngine(zap.NewNop(), memory.NewStore(), chain, pub, rules)
	return e, chain, pub
}

// liveMatch creates a match and joins an opponent.
func liveMatch(t *testing.T, e *match.Engine) *match.Match {
	t.Helper()
	ctx := context.Background()
	m, err := e.Create(ctx, "alice", "")
	require.NoError(t, err)
	m, err = e.Join(ctx, m.ID, "bob")
	require.NoError(t, err)
	return m
}

func TestCreateMatch(t *testing.T) {
	e, _, pub := newTestEngine(t, defaultRules())

	m, err := e.Create(context.Background(), "alice", "friendly")
	require.NoError(t, err)

	assert.Equal(t, match.StatusPending, m.Status)
	assert.Equal(t, "alice", m.Creator)
	assert.Equal(t, "pool-"+m.ID, m.PoolAddress)
	assert.Nil(t, m.Opponent)
	require.Len(t, pub.created, 1)
	assert.Equal(t, m.ID, pub.created[0].MatchID)
}

func TestCreateMatchChainDown(t *testing.T) {
	chain := &fakeChain{failOp: "create"}
	e := match.NewEngine(zap.NewNop(), memory.NewStore(), chain, &capturePub{}, defaultRules())

	_, err := e.Create(context.Background(), "alice", "")
	var ext *match.ExternalError
	require.ErrorAs(t, err, &ext)
}

func TestJoinMatch(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	m := liveMatch(t, e)

	assert.Equal(t, match.StatusLive, m.Status)
	require.NotNil(t, m.Opponent)
	assert.Equal(t, "bob", *m.Opponent)
	require.NotNil(t, m.LockTime)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), *m.LockTime, 5*time.Second)
}

func TestJoinRejectsCreatorAndDoubleJoin(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m, err := e.Create(ctx, "alice", "")
	require.NoError(t, err)

	_, err = e.Join(ctx, m.ID, "alice")
	assert.ErrorIs(t, err, match.ErrUnauthorized)

	_, err = e.Join(ctx, m.ID, "bob")
	require.NoError(t, err)

	_, err = e.Join(ctx, m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestJoinUnknownMatch(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	_, err := e.Join(context.Background(), "nope", "bob")
	assert.ErrorIs(t, err, match.ErrMatchNotFound)
}

func TestSubmitMoveTurnOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	// bob (player2) cannot open.
	_, err := e.SubmitMove(ctx, m.ID, "bob", 0)
	assert.ErrorIs(t, err, match.ErrNotYourTurn)

	m2, err := e.SubmitMove(ctx, m.ID, "alice", 4)
	require.NoError(t, err)
	require.Len(t, m2.Moves, 1)
	assert.Equal(t, game.SidePlayer1, m2.Moves[0].Side)
	assert.Equal(t, 0, m2.Moves[0].Index)

	// alice cannot move twice in a row.
	_, err = e.SubmitMove(ctx, m.ID, "alice", 0)
	assert.ErrorIs(t, err, match.ErrNotYourTurn)

	// spectators get rejected outright.
	_, err = e.SubmitMove(ctx, m.ID, "mallory", 0)
	assert.ErrorIs(t, err, match.ErrUnauthorized)
}

func TestSubmitMoveRejectsOccupiedCell(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	_, err := e.SubmitMove(ctx, m.ID, "alice", 4)
	require.NoError(t, err)
	_, err = e.SubmitMove(ctx, m.ID, "bob", 4)
	assert.ErrorIs(t, err, match.ErrInvalidMove)
}

func TestMoveDerivedWin(t *testing.T) {
	e, _, pub := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	// alice takes the top row: 0,1,2 against bob's 3,4.
	turns := []struct {
		player string
		pos    int
	}{
		{"alice", 0}, {"bob", 3},
		{"alice", 1}, {"bob", 4},
		{"alice", 2},
	}
	var final *match.Match
	for _, tn := range turns {
		var err error
		final, err = e.SubmitMove(ctx, m.ID, tn.player, tn.pos)
		require.NoError(t, err)
	}

	assert.Equal(t, match.StatusFinished, final.Status)
	require.NotNil(t, final.Winner)
	assert.Equal(t, game.OutcomePlayer1, *final.Winner)
	require.NotNil(t, final.WinningLine)
	assert.Equal(t, [3]int{0, 1, 2}, *final.WinningLine)

	require.Len(t, pub.finished, 1)
	assert.True(t, pub.finished[0].MoveDerived)
	assert.Equal(t, "player1", pub.finished[0].Winner)

	// no moves after the match settled
	_, err := e.SubmitMove(ctx, m.ID, "bob", 5)
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestMoveDerivedDraw(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	// alternating alice/bob: alice 0 2 3 7 8, bob 1 4 5 6 -> no line
	for _, pos := range []struct {
		player string
		p      int
	}{
		{"alice", 0}, {"bob", 1},
		{"alice", 2}, {"bob", 4},
		{"alice", 3}, {"bob", 5},
		{"alice", 7}, {"bob", 6},
		{"alice", 8},
	} {
		_, err := e.SubmitMove(ctx, m.ID, pos.player, pos.p)
		require.NoError(t, err)
	}

	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Winner)
	assert.Equal(t, game.OutcomeDraw, *got.Winner)
	assert.Nil(t, got.WinningLine)
}

func TestBoardCellsRule(t *testing.T) {
	rules := defaultRules()
	rules.BoardCells = 4
	e, _, _ := newTestEngine(t, rules)
	ctx := context.Background()
	m := liveMatch(t, e)

	// position 8 exists on the default board but not on this one
	_, err := e.SubmitMove(ctx, m.ID, "alice", 8)
	assert.ErrorIs(t, err, match.ErrInvalidMove)

	for _, mv := range []struct {
		player string
		pos    int
	}{
		{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 2},
	} {
		_, err = e.SubmitMove(ctx, m.ID, mv.player, mv.pos)
		require.NoError(t, err)
	}

	// four moves fill the four cells with no completed line
	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusFinished, got.Status)
	require.NotNil(t, got.Winner)
	assert.Equal(t, game.OutcomeDraw, *got.Winner)
}

func TestPlaceBet(t *testing.T) {
	e, _, pub := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 2_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, match.BetPending, b.Status)
	assert.Equal(t, "sig-bet", b.TxSignature)

	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), got.Pool.SideA)
	assert.Equal(t, int64(2_000_000_000), got.Pool.Total)

	require.Len(t, pub.placed, 1)
	assert.Equal(t, b.ID, pub.placed[0].BetID)
}

func TestPlaceBetStakeLimits(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	_, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 9_999_999)
	assert.ErrorIs(t, err, match.ErrInvalidAmount, "below min stake")

	_, err = e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 10_000_000_001)
	assert.ErrorIs(t, err, match.ErrInvalidAmount, "above max stake")

	_, err = e.PlaceBet(ctx, m.ID, "carol", "referee", 1_000_000_000)
	assert.ErrorIs(t, err, match.ErrInvalidAmount, "unknown side")
}

func TestPlaceBetClosedWindow(t *testing.T) {
	rules := defaultRules()
	rules.LockDuration = -time.Second // lock already in the past
	e, _, _ := newTestEngine(t, rules)
	ctx := context.Background()
	m := liveMatch(t, e)

	_, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 1_000_000_000)
	assert.ErrorIs(t, err, match.ErrBettingClosed)
}

func TestPlaceBetOnPendingMatch(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m, err := e.Create(ctx, "alice", "")
	require.NoError(t, err)

	// the window opens at creation, before the opponent joins
	b, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, match.BetPending, b.Status)

	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), got.Pool.SideA)
}

func TestPlaceBetOnFinishedMatch(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)
	_, err := e.ReportResult(ctx, m.ID, "alice", game.OutcomePlayer1)
	require.NoError(t, err)

	_, err = e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 1_000_000_000)
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestConfirmBetRejectionBacksOutStake(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer2, 1_000_000_000)
	require.NoError(t, err)

	require.NoError(t, e.ConfirmBet(ctx, m.ID, b.ID, match.BetRejected, "insufficient funds"))

	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Pool.SideB)
	assert.Zero(t, got.Pool.Total)

	// redelivery is a no-op
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b.ID, match.BetRejected, "dup"))
	got, err = e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Pool.Total)
}

func TestConfirmBetRejectionAfterFinishKeepsPool(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b1, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 5_000_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b1.ID, match.BetConfirmed, ""))
	b2, err := e.PlaceBet(ctx, m.ID, "dave", game.SidePlayer1, 3_000_000_000)
	require.NoError(t, err)

	_, err = e.ReportResult(ctx, m.ID, "alice", game.OutcomePlayer1)
	require.NoError(t, err)

	_, err = e.ClaimPayout(ctx, m.ID, "carol")
	require.NoError(t, err)

	// a verdict landing after finalization resolves the bet but must
	// not shrink the pool carol's payout was computed against
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b2.ID, match.BetRejected, "insufficient funds"))

	got, err := e.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8_000_000_000), got.Pool.Total)
	assert.Equal(t, int64(8_000_000_000), got.Pool.SideA)

	bets, err := e.BetsForMatch(ctx, m.ID)
	require.NoError(t, err)
	for _, b := range bets {
		if b.ID == b2.ID {
			assert.Equal(t, match.BetRejected, b.Status)
		}
	}
}

// settleWithBets builds a finished match: carol 5 SOL and dave 3 SOL
// on player1, erin 2 SOL on player2, player1 wins.
func settleWithBets(t *testing.T, e *match.Engine) *match.Match {
	t.Helper()
	ctx := context.Background()
	m := liveMatch(t, e)

	for _, s := range []struct {
		bettor string
		side   game.Side
		amount int64
	}{
		{"carol", game.SidePlayer1, 5_000_000_000},
		{"dave", game.SidePlayer1, 3_000_000_000},
		{"erin", game.SidePlayer2, 2_000_000_000},
	} {
		b, err := e.PlaceBet(ctx, m.ID, s.bettor, s.side, s.amount)
		require.NoError(t, err)
		require.NoError(t, e.ConfirmBet(ctx, m.ID, b.ID, match.BetConfirmed, ""))
	}

	m, err := e.ReportResult(ctx, m.ID, "alice", game.OutcomePlayer1)
	require.NoError(t, err)
	return m
}

func TestClaimPayout(t *testing.T) {
	e, _, pub := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := settleWithBets(t, e)

	// net pool 9.8 SOL, winning pool 8 SOL: carol takes 9.8*5/8.
	rcpt, err := e.ClaimPayout(ctx, m.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(6_125_000_000), rcpt.Amount)
	assert.Equal(t, "sig-claim", rcpt.TxSignature)
	require.Len(t, pub.claimed, 1)

	_, err = e.ClaimPayout(ctx, m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrAlreadyClaimed)
}

func TestClaimLosingBet(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	m := settleWithBets(t, e)

	_, err := e.ClaimPayout(context.Background(), m.ID, "erin")
	assert.ErrorIs(t, err, match.ErrLosingBet)
}

func TestClaimWithoutBet(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	m := settleWithBets(t, e)

	_, err := e.ClaimPayout(context.Background(), m.ID, "mallory")
	assert.ErrorIs(t, err, match.ErrBetNotFound)
}

func TestClaimBeforeFinish(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 1_000_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b.ID, match.BetConfirmed, ""))

	_, err = e.ClaimPayout(ctx, m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrMatchNotFinished)
}

func TestClaimOnDrawRefunds(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b1, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 3_000_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b1.ID, match.BetConfirmed, ""))
	b2, err := e.PlaceBet(ctx, m.ID, "erin", game.SidePlayer2, 1_000_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b2.ID, match.BetConfirmed, ""))

	_, err = e.ReportResult(ctx, m.ID, "alice", game.OutcomeDraw)
	require.NoError(t, err)

	// the payout path does not settle draws
	_, err = e.ClaimPayout(ctx, m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrNoWinner)

	rcpt, err := e.ClaimRefund(ctx, m.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000_000), rcpt.Amount)
	assert.Equal(t, "sig-refund", rcpt.TxSignature)

	rcpt, err = e.ClaimRefund(ctx, m.ID, "erin")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), rcpt.Amount)

	// second refund attempt
	_, err = e.ClaimRefund(ctx, m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrAlreadyClaimed)
}

func TestClaimRefundOnDecidedMatch(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	m := settleWithBets(t, e)

	_, err := e.ClaimRefund(context.Background(), m.ID, "carol")
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestReportResultAuthorization(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	_, err := e.ReportResult(ctx, m.ID, "bob", game.OutcomePlayer2)
	assert.ErrorIs(t, err, match.ErrUnauthorized)

	_, err = e.ReportResult(ctx, m.ID, "alice", "coinflip")
	assert.ErrorIs(t, err, match.ErrInvalidState)

	_, err = e.ReportResult(ctx, m.ID, "alice", game.OutcomePlayer2)
	require.NoError(t, err)

	// already finished
	_, err = e.ReportResult(ctx, m.ID, "alice", game.OutcomePlayer1)
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestCancel(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m, err := e.Create(ctx, "alice", "")
	require.NoError(t, err)

	_, err = e.Cancel(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, match.ErrUnauthorized)

	got, err := e.Cancel(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelled, got.Status)

	// live matches can still be abandoned
	live := liveMatch(t, e)
	got, err = e.Cancel(ctx, live.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelled, got.Status)

	// but not finished ones
	done := settleWithBets(t, e)
	_, err = e.Cancel(ctx, done.ID, "alice")
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestStats(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()
	m := liveMatch(t, e)

	b1, err := e.PlaceBet(ctx, m.ID, "carol", game.SidePlayer1, 2_000_000_000)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmBet(ctx, m.ID, b1.ID, match.BetConfirmed, ""))
	_, err = e.PlaceBet(ctx, m.ID, "erin", game.SidePlayer2, 6_000_000_000)
	require.NoError(t, err)

	st, err := e.Stats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusLive, st.Status)
	assert.Equal(t, 2, st.BetCount)
	assert.Equal(t, 1, st.Confirmed)
	assert.InDelta(t, 4.0, st.OddsPlayer1, 1e-9)
	assert.True(t, st.BettingOpen)
}

func TestEffectiveStatusBettingClosed(t *testing.T) {
	rules := defaultRules()
	rules.LockDuration = -time.Second
	e, _, _ := newTestEngine(t, rules)
	m := liveMatch(t, e)

	st, err := e.Stats(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusBettingClosed, st.Status)
	assert.False(t, st.BettingOpen)

	// moves are still allowed after betting closes
	_, err = e.SubmitMove(context.Background(), m.ID, "alice", 0)
	require.NoError(t, err)
}

func TestSeedDemo(t *testing.T) {
	e, _, _ := newTestEngine(t, defaultRules())
	ctx := context.Background()

	m, err := e.SeedDemo(ctx)
	require.NoError(t, err)
	assert.Equal(t, match.StatusLive, m.Status)
	assert.Equal(t, int64(3_500_000_000), m.Pool.Total)

	st, err := e.Stats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.BetCount)
	assert.Equal(t, 3, st.Confirmed)
	assert.True(t, st.BettingOpen)
}
