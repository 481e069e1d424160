package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/pool"
	"github.com/Akhil-Rawat/Plexo/pkg/contracts/events"
)

// Authority is the on-chain program the engine mirrors state into.
// The simulator implements it in-process; the HTTP client talks to a
// separate chain-simulator service.
type Authority interface {
	CreateMatch(ctx context.Context, matchID, creator string) (poolAddress string, err error)
	JoinMatch(ctx context.Context, matchID, opponent string) error
	PlaceBet(ctx context.Context, matchID, bettor string, side game.Side, amount int64) (txSignature string, err error)
	ReportResult(ctx context.Context, matchID string, winner game.Outcome) error
	Claim(ctx context.Context, matchID, bettor string, amount int64) (txSignature string, err error)
	Refund(ctx context.Context, matchID, bettor string, amount int64) (txSignature string, err error)
}

// Publisher emits the lifecycle events other services consume.
type Publisher interface {
	PublishMatchCreated(ctx context.Context, e events.MatchCreated) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishMatchFinished(ctx context.Context, e events.MatchFinished) error
	PublishPayoutClaimed(ctx context.Context, e events.PayoutClaimed) error
}

// Rules carries the stake, timing and board policy the engine
// enforces.
type Rules struct {
	MinBet       int64
	MaxBet       int64
	FeePercent   int64
	LockDuration time.Duration
	BoardCells   int // zero means the default board size
}

// Engine drives every match state transition. All writes to one match
// are serialized through a per-match mutex so concurrent bets and
// moves cannot interleave.
type Engine struct {
	log   *zap.Logger
	store Store
	chain Authority
	publ  Publisher
	rules Rules

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(log *zap.Logger, store Store, chain Authority, publ Publisher, rules Rules) *Engine {
	return &Engine{
		log:   log,
		store: store,
		chain: chain,
		publ:  publ,
		rules: rules,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one match, creating it on first
// use. Locks are never evicted; match cardinality is small.
func (e *Engine) lockFor(matchID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[matchID] = l
	}
	return l
}

// Create opens a new PENDING match for creator and registers its pool
// with the chain authority.
func (e *Engine) Create(ctx context.Context, creator, metadata string) (*Match, error) {
	if creator == "" {
		return nil, errors.New("creator required")
	}

	id := uuid.NewString()
	poolAddr, err := e.chain.CreateMatch(ctx, id, creator)
	if err != nil {
		return nil, external("chain create_match", err)
	}

	now := time.Now().UTC()
	m := &Match{
		ID:          id,
		Creator:     creator,
		Status:      StatusPending,
		Moves:       []MoveRecord{},
		PoolAddress: poolAddr,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateMatch(ctx, m); err != nil {
		return nil, err
	}

	if err := e.publ.PublishMatchCreated(ctx, events.MatchCreated{
		MatchID:     m.ID,
		Creator:     creator,
		PoolAddress: poolAddr,
	}); err != nil {
		e.log.Warn("publish match_created", zap.String("matchId", m.ID), zap.Error(err))
	}

	e.log.Info("match created", zap.String("matchId", m.ID), zap.String("creator", creator))
	return m, nil
}

// Join fills the opponent seat, flips the match to LIVE and starts the
// betting window.
func (e *Engine) Join(ctx context.Context, matchID, opponent string) (*Match, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending {
		return nil, errInvalidState(m.Status, "join")
	}
	if opponent == "" || opponent == m.Creator {
		return nil, errors.Join(ErrUnauthorized, errors.New("opponent must differ from creator"))
	}

	if err := e.chain.JoinMatch(ctx, matchID, opponent); err != nil {
		return nil, external("chain join_match", err)
	}

	now := time.Now().UTC()
	lockAt := now.Add(e.rules.LockDuration)
	m.Opponent = &opponent
	m.Status = StatusLive
	m.LockTime = &lockAt
	m.UpdatedAt = now
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}

	e.log.Info("match joined",
		zap.String("matchId", m.ID),
		zap.String("opponent", opponent),
		zap.Time("lockTime", lockAt),
	)
	return m, nil
}

// SubmitMove validates and applies one move on behalf of player. When
// the move ends the game the match settles immediately with the
// outcome derived from the board.
func (e *Engine) SubmitMove(ctx context.Context, matchID, player string, position int) (*Match, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	switch m.EffectiveStatus(time.Now().UTC()) {
	case StatusLive, StatusBettingClosed:
	default:
		return nil, errInvalidState(m.Status, "move")
	}

	side, ok := m.SideOf(player)
	if !ok {
		return nil, errors.Join(ErrUnauthorized, errors.New("not a participant"))
	}
	if side != m.NextSide() {
		return nil, ErrNotYourTurn
	}

	board, err := m.Board(e.rules.BoardCells)
	if err != nil {
		return nil, err
	}
	if err := board.Apply(game.Move{Side: side, Position: position}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.Moves = append(m.Moves, MoveRecord{
		Side:      side,
		Position:  position,
		Index:     len(m.Moves),
		Timestamp: now,
	})
	m.UpdatedAt = now

	if outcome, over := board.Evaluate(); over {
		if err := e.finish(ctx, m, outcome, board, true); err != nil {
			return nil, err
		}
	} else if err := e.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}

	e.log.Info("move applied",
		zap.String("matchId", m.ID),
		zap.String("side", string(side)),
		zap.Int("position", position),
		zap.String("status", string(m.Status)),
	)
	return m, nil
}

// ReportResult lets the match creator settle a result that did not
// come from the board, e.g. a forfeit. Move-derived wins always take
// precedence: a match the board already decided is FINISHED and cannot
// be re-reported.
func (e *Engine) ReportResult(ctx context.Context, matchID, reporter string, winner game.Outcome) (*Match, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if reporter != m.Creator {
		return nil, errors.Join(ErrUnauthorized, errors.New("only the creator reports results"))
	}
	switch m.EffectiveStatus(time.Now().UTC()) {
	case StatusLive, StatusBettingClosed:
	default:
		return nil, errInvalidState(m.Status, "report result")
	}
	if !winner.Valid() {
		return nil, errors.Join(ErrInvalidState, errors.New("unknown outcome"))
	}

	if err := e.finish(ctx, m, winner, nil, false); err != nil {
		return nil, err
	}
	return m, nil
}

// finish records the outcome, settles the chain pool and broadcasts
// the result. Caller holds the match lock.
func (e *Engine) finish(ctx context.Context, m *Match, outcome game.Outcome, board *game.Board, moveDerived bool) error {
	if err := e.chain.ReportResult(ctx, m.ID, outcome); err != nil {
		return external("chain report_result", err)
	}

	m.Status = StatusFinished
	m.Winner = &outcome
	m.UpdatedAt = time.Now().UTC()
	if board != nil {
		if line, ok := board.WinningLine(); ok {
			m.WinningLine = &line
		}
	}
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		return err
	}

	if err := e.publ.PublishMatchFinished(ctx, events.MatchFinished{
		MatchID:     m.ID,
		Winner:      string(outcome),
		PoolSideA:   m.Pool.SideA,
		PoolSideB:   m.Pool.SideB,
		TotalPool:   m.Pool.Total,
		MoveDerived: moveDerived,
	}); err != nil {
		e.log.Warn("publish match_finished", zap.String("matchId", m.ID), zap.Error(err))
	}

	e.log.Info("match finished",
		zap.String("matchId", m.ID),
		zap.String("winner", string(outcome)),
		zap.Bool("moveDerived", moveDerived),
		zap.Int64("totalPool", m.Pool.Total),
	)
	return nil
}

// PlaceBet escrows a stake on one side while the betting window is
// open. The bet starts PENDING and is confirmed asynchronously by the
// settlement worker once the chain transaction lands.
func (e *Engine) PlaceBet(ctx context.Context, matchID, bettor string, side game.Side, amount int64) (*Bet, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.BettingOpen(time.Now().UTC()) {
		if m.Status == StatusLive {
			return nil, ErrBettingClosed
		}
		return nil, errInvalidState(m.Status, "bet")
	}
	if !side.Valid() {
		return nil, errors.Join(pool.ErrInvalidAmount, errors.New("unknown side"))
	}
	if amount < e.rules.MinBet || amount > e.rules.MaxBet {
		return nil, errInvalidAmount(amount, e.rules.MinBet, e.rules.MaxBet)
	}

	txSig, err := e.chain.PlaceBet(ctx, matchID, bettor, side, amount)
	if err != nil {
		return nil, external("chain place_bet", err)
	}

	now := time.Now().UTC()
	b := &Bet{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		Bettor:      bettor,
		Side:        side,
		Amount:      amount,
		Status:      BetPending,
		TxSignature: txSig,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateBet(ctx, b); err != nil {
		return nil, err
	}

	// Provisionally counted; ConfirmBet reverses it on rejection.
	if err := m.Pool.Add(side, amount); err != nil {
		return nil, err
	}
	m.UpdatedAt = now
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}

	if err := e.publ.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:          b.ID,
		MatchID:        matchID,
		Bettor:         bettor,
		Side:           string(side),
		AmountLamports: amount,
		TxSignature:    txSig,
	}); err != nil {
		e.log.Warn("publish bet_placed", zap.String("betId", b.ID), zap.Error(err))
	}

	e.log.Info("bet placed",
		zap.String("betId", b.ID),
		zap.String("matchId", matchID),
		zap.String("side", string(side)),
		zap.Int64("amount", amount),
	)
	return b, nil
}

// ConfirmBet applies the settlement worker's verdict. A rejection
// backs the stake out of the pool again.
func (e *Engine) ConfirmBet(ctx context.Context, matchID, betID string, status BetStatus, reason string) error {
	if status != BetConfirmed && status != BetRejected {
		return errors.Join(ErrInvalidState, errors.New("confirm status must be CONFIRMED or REJECTED"))
	}

	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	b, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return err
	}
	if b.Status != BetPending {
		// Redelivered event; the first verdict stands.
		return nil
	}

	if status == BetRejected {
		m, err := e.store.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		// Pool totals freeze the moment the match turns terminal:
		// payouts are computed against that snapshot, so a late
		// verdict only resolves the bet's status and never backs
		// the stake out.
		if m.Status != StatusFinished && m.Status != StatusCancelled {
			if err := m.Pool.Remove(b.Side, b.Amount); err != nil {
				return err
			}
			m.UpdatedAt = time.Now().UTC()
			if err := e.store.UpdateMatch(ctx, m); err != nil {
				return err
			}
		} else {
			e.log.Warn("late bet rejection, pool already frozen",
				zap.String("matchId", matchID),
				zap.String("betId", betID),
			)
		}
	}

	return e.store.UpdateBetStatus(ctx, betID, status, reason)
}

// ClaimPayout pays every unclaimed winning bet the bettor holds on a
// finished match. Draws return ErrNoWinner; those settle through
// ClaimRefund instead.
func (e *Engine) ClaimPayout(ctx context.Context, matchID, bettor string) (*ClaimReceipt, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusFinished {
		return nil, ErrMatchNotFinished
	}
	if m.Winner == nil {
		return nil, ErrNoWinner
	}

	all, err := e.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var mine []*Bet
	for _, b := range all {
		if b.Bettor == bettor && b.Status == BetConfirmed {
			mine = append(mine, b)
		}
	}
	if len(mine) == 0 {
		return nil, ErrBetNotFound
	}

	winSide, hasWinner := m.Winner.WinningSide()
	if !hasWinner {
		// Draws settle through ClaimRefund, not the payout path.
		return nil, ErrNoWinner
	}
	var winning []*Bet
	for _, b := range mine {
		if b.Side == winSide {
			winning = append(winning, b)
		}
	}
	if len(winning) == 0 {
		return nil, ErrLosingBet
	}

	var unclaimed []*Bet
	for _, b := range winning {
		if !b.Claimed {
			unclaimed = append(unclaimed, b)
		}
	}
	if len(unclaimed) == 0 {
		return nil, ErrAlreadyClaimed
	}

	winningPool := m.Pool.ForOutcome(*m.Winner)
	receipt := &ClaimReceipt{MatchID: matchID, Bettor: bettor}
	payouts := make(map[string]int64, len(unclaimed))
	for _, b := range unclaimed {
		p, err := pool.Payout(b.Amount, winningPool, m.Pool.Total, e.rules.FeePercent)
		if err != nil {
			return nil, err
		}
		payouts[b.ID] = p
		receipt.Amount += p
		receipt.BetIDs = append(receipt.BetIDs, b.ID)
	}

	txSig, err := e.chain.Claim(ctx, matchID, bettor, receipt.Amount)
	if err != nil {
		return nil, external("chain claim", err)
	}
	receipt.TxSignature = txSig

	for _, b := range unclaimed {
		if err := e.store.MarkBetClaimed(ctx, b.ID, payouts[b.ID], txSig); err != nil {
			return nil, err
		}
	}

	if err := e.publ.PublishPayoutClaimed(ctx, events.PayoutClaimed{
		MatchID:        matchID,
		BetID:          receipt.BetIDs[0],
		Bettor:         bettor,
		AmountLamports: receipt.Amount,
		TxSignature:    txSig,
	}); err != nil {
		e.log.Warn("publish payout_claimed", zap.String("matchId", matchID), zap.Error(err))
	}

	e.log.Info("payout claimed",
		zap.String("matchId", matchID),
		zap.String("bettor", bettor),
		zap.Int64("amount", receipt.Amount),
	)
	return receipt, nil
}

// ClaimRefund returns every unclaimed confirmed stake the bettor holds
// on a drawn match, at face value and without the platform fee.
func (e *Engine) ClaimRefund(ctx context.Context, matchID, bettor string) (*ClaimReceipt, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusFinished {
		return nil, ErrMatchNotFinished
	}
	if m.Winner == nil {
		return nil, ErrNoWinner
	}
	if _, hasWinner := m.Winner.WinningSide(); hasWinner {
		return nil, errors.Join(ErrInvalidState, errors.New("refund only applies to drawn matches"))
	}

	all, err := e.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	var mine []*Bet
	for _, b := range all {
		if b.Bettor == bettor && b.Status == BetConfirmed {
			mine = append(mine, b)
		}
	}
	if len(mine) == 0 {
		return nil, ErrBetNotFound
	}
	var unclaimed []*Bet
	for _, b := range mine {
		if !b.Claimed {
			unclaimed = append(unclaimed, b)
		}
	}
	if len(unclaimed) == 0 {
		return nil, ErrAlreadyClaimed
	}

	receipt := &ClaimReceipt{MatchID: matchID, Bettor: bettor}
	for _, b := range unclaimed {
		receipt.Amount += b.Amount
		receipt.BetIDs = append(receipt.BetIDs, b.ID)
	}

	txSig, err := e.chain.Refund(ctx, matchID, bettor, receipt.Amount)
	if err != nil {
		return nil, external("chain refund_bet", err)
	}
	receipt.TxSignature = txSig

	for _, b := range unclaimed {
		if err := e.store.MarkBetClaimed(ctx, b.ID, b.Amount, txSig); err != nil {
			return nil, err
		}
	}

	if err := e.publ.PublishPayoutClaimed(ctx, events.PayoutClaimed{
		MatchID:        matchID,
		BetID:          receipt.BetIDs[0],
		Bettor:         bettor,
		AmountLamports: receipt.Amount,
		TxSignature:    txSig,
	}); err != nil {
		e.log.Warn("publish payout_claimed", zap.String("matchId", matchID), zap.Error(err))
	}

	e.log.Info("stakes refunded",
		zap.String("matchId", matchID),
		zap.String("bettor", bettor),
		zap.Int64("amount", receipt.Amount),
	)
	return receipt, nil
}

// Cancel withdraws a PENDING match before anyone joined. Only the
// creator may cancel.
func (e *Engine) Cancel(ctx context.Context, matchID, requester string) (*Match, error) {
	l := e.lockFor(matchID)
	l.Lock()
	defer l.Unlock()

	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if requester != m.Creator {
		return nil, errors.Join(ErrUnauthorized, errors.New("only the creator cancels"))
	}
	if m.Status != StatusPending && m.Status != StatusLive {
		return nil, errInvalidState(m.Status, "cancel")
	}

	m.Status = StatusCancelled
	m.UpdatedAt = time.Now().UTC()
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}

	e.log.Info("match cancelled", zap.String("matchId", matchID))
	return m, nil
}

// Get returns one match.
func (e *Engine) Get(ctx context.Context, matchID string) (*Match, error) {
	return e.store.GetMatch(ctx, matchID)
}

// List returns matches matching the filter.
func (e *Engine) List(ctx context.Context, f Filter) ([]*Match, error) {
	return e.store.ListMatches(ctx, f)
}

// BetsForMatch returns every bet on one match.
func (e *Engine) BetsForMatch(ctx context.Context, matchID string) ([]*Bet, error) {
	if _, err := e.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return e.store.ListBetsByMatch(ctx, matchID)
}

// BetsForBettor returns a wallet's bets across all matches.
func (e *Engine) BetsForBettor(ctx context.Context, bettor string) ([]*Bet, error) {
	return e.store.ListBetsByBettor(ctx, bettor)
}

// Stats aggregates the betting view of one match.
func (e *Engine) Stats(ctx context.Context, matchID string) (*Stats, error) {
	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	bets, err := e.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	st := &Stats{
		MatchID:     m.ID,
		Status:      m.EffectiveStatus(now),
		Pool:        m.Pool,
		OddsPlayer1: m.Pool.Odds(game.SidePlayer1),
		OddsPlayer2: m.Pool.Odds(game.SidePlayer2),
		BetCount:    len(bets),
		LockTime:    m.LockTime,
		BettingOpen: m.BettingOpen(now),
	}
	for _, b := range bets {
		if b.Status == BetConfirmed {
			st.Confirmed++
		}
	}
	return st, nil
}

func errInvalidState(s Status, op string) error {
	return errors.Join(ErrInvalidState, errors.New("cannot "+op+" in status "+string(s)))
}

func errInvalidAmount(amount, min, max int64) error {
	return errors.Join(pool.ErrInvalidAmount,
		fmt.Errorf("stake %d outside allowed range [%d,%d]", amount, min, max),
	)
}
