package game

import (
	"errors"
	"testing"
)

func TestApplyValidMove(t *testing.T) {
	b := Default()
	if err := b.Apply(Move{Side: SidePlayer1, Position: 4}); err != nil {
		t.Fatalf("expected move to be valid, got error: %v", err)
	}
	if got := b.Cell(4); got != SidePlayer1 {
		t.Fatalf("expected cell 4 to be %q, got %q", SidePlayer1, got)
	}
}

func TestValidateRejectsOccupiedCell(t *testing.T) {
	b := Default()
	if err := b.Apply(Move{Side: SidePlayer1, Position: 0}); err != nil {
		t.Fatalf("setup move failed: %v", err)
	}
	err := b.Validate(Move{Side: SidePlayer2, Position: 0})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for occupied cell, got %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	b := Default()
	for _, pos := range []int{-1, 9, 42} {
		if err := b.Validate(Move{Side: SidePlayer1, Position: pos}); !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("expected ErrInvalidMove for position %d, got %v", pos, err)
		}
	}
}

func TestValidateRejectsUnknownSide(t *testing.T) {
	b := Default()
	if err := b.Validate(Move{Side: "spectator", Position: 1}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for unknown side, got %v", err)
	}
}

func TestValidateRejectsConsecutiveSameSide(t *testing.T) {
	b := Default()
	// either side may open
	if err := b.Apply(Move{Side: SidePlayer2, Position: 0}); err != nil {
		t.Fatalf("opening move failed: %v", err)
	}
	if err := b.Validate(Move{Side: SidePlayer2, Position: 1}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for back-to-back player2 moves, got %v", err)
	}
	if err := b.Apply(Move{Side: SidePlayer1, Position: 1}); err != nil {
		t.Fatalf("alternated move failed: %v", err)
	}
}

func TestReplayRejectsConsecutiveSameSide(t *testing.T) {
	_, err := Replay([]Move{
		{SidePlayer1, 0}, {SidePlayer1, 1}, {SidePlayer1, 2},
	})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for a one-sided history, got %v", err)
	}
}

func TestNewCustomSize(t *testing.T) {
	// 4-cell board with a single custom line
	b := New(4, [][3]int{{0, 1, 2}})
	if b.Size() != 4 {
		t.Fatalf("expected 4 cells, got %d", b.Size())
	}
	if err := b.Validate(Move{Side: SidePlayer1, Position: 4}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove beyond cell count, got %v", err)
	}
	for _, m := range []Move{
		{SidePlayer1, 0}, {SidePlayer2, 3},
		{SidePlayer1, 1}, {SidePlayer2, 2},
	} {
		if err := b.Apply(m); err != nil {
			t.Fatalf("move failed: %v", err)
		}
	}
	// board full, player2 holds cell 2, so line {0,1,2} is not won
	outcome, over := b.Evaluate()
	if !over || outcome != OutcomeDraw {
		t.Fatalf("expected draw on the full custom board, got %q over=%v", outcome, over)
	}
}

func TestNewIgnoresOutOfRangeLines(t *testing.T) {
	b := New(3, nil) // default 3x3 table, but only cells 0..2 exist
	for _, m := range []Move{
		{SidePlayer1, 0}, {SidePlayer2, 1}, {SidePlayer1, 2},
	} {
		if err := b.Apply(m); err != nil {
			t.Fatalf("move failed: %v", err)
		}
	}
	// only {0,1,2} is in range and it is mixed, so the full board draws
	outcome, over := b.Evaluate()
	if !over || outcome != OutcomeDraw {
		t.Fatalf("expected draw, got %q over=%v", outcome, over)
	}
}

func TestTopRowWin(t *testing.T) {
	b := Default()
	moves := []Move{
		{SidePlayer1, 0},
		{SidePlayer2, 3},
		{SidePlayer1, 1},
		{SidePlayer2, 4},
		{SidePlayer1, 2},
	}
	for i, m := range moves {
		if err := b.Apply(m); err != nil {
			t.Fatalf("move %d failed: %v", i, err)
		}
	}

	outcome, over := b.Evaluate()
	if !over {
		t.Fatal("expected game to be over")
	}
	if outcome != OutcomePlayer1 {
		t.Fatalf("expected player1 to win, got %q", outcome)
	}

	line, ok := b.WinningLine()
	if !ok {
		t.Fatal("expected a winning line")
	}
	if line != [3]int{0, 1, 2} {
		t.Fatalf("expected line [0 1 2], got %v", line)
	}
}

func TestNoMovesAfterWin(t *testing.T) {
	b := Default()
	for _, m := range []Move{
		{SidePlayer1, 0}, {SidePlayer2, 3},
		{SidePlayer1, 1}, {SidePlayer2, 4},
		{SidePlayer1, 2},
	} {
		if err := b.Apply(m); err != nil {
			t.Fatalf("setup move failed: %v", err)
		}
	}
	if err := b.Validate(Move{Side: SidePlayer2, Position: 5}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove after game is decided, got %v", err)
	}
}

func TestDrawOnFullBoard(t *testing.T) {
	// p1: 0 1 5 6 8, p2: 2 3 4 7 -> no completed line
	b := Default()
	moves := []Move{
		{SidePlayer1, 0}, {SidePlayer2, 2},
		{SidePlayer1, 1}, {SidePlayer2, 3},
		{SidePlayer1, 5}, {SidePlayer2, 4},
		{SidePlayer1, 6}, {SidePlayer2, 7},
		{SidePlayer1, 8},
	}
	for i, m := range moves {
		if err := b.Apply(m); err != nil {
			t.Fatalf("move %d failed: %v", i, err)
		}
	}

	outcome, over := b.Evaluate()
	if !over {
		t.Fatal("expected full board to be over")
	}
	if outcome != OutcomeDraw {
		t.Fatalf("expected draw, got %q", outcome)
	}
	if _, ok := b.WinningLine(); ok {
		t.Fatal("draw should have no winning line")
	}
}

func TestFirstLineWinsWhenTwoComplete(t *testing.T) {
	// player1 occupies 0,1,2 (row) and 0,3,6 (column) on a custom board
	// where both lines close with the final move at 0. The row is listed
	// first, so it must be the reported line.
	b := Default()
	for _, m := range []Move{
		{SidePlayer1, 1}, {SidePlayer2, 4},
		{SidePlayer1, 2}, {SidePlayer2, 5},
		{SidePlayer1, 3}, {SidePlayer2, 7},
		{SidePlayer1, 6}, {SidePlayer2, 8},
		{SidePlayer1, 0},
	} {
		if err := b.Apply(m); err != nil {
			t.Fatalf("setup move failed: %v", err)
		}
	}

	line, ok := b.WinningLine()
	if !ok {
		t.Fatal("expected a winning line")
	}
	if line != [3]int{0, 1, 2} {
		t.Fatalf("expected the row [0 1 2] to be reported first, got %v", line)
	}
}

func TestNotOverMidGame(t *testing.T) {
	b := Default()
	_ = b.Apply(Move{SidePlayer1, 0})
	_ = b.Apply(Move{SidePlayer2, 4})
	if _, over := b.Evaluate(); over {
		t.Fatal("game should not be over after two moves")
	}
}

func TestReplay(t *testing.T) {
	b, err := Replay([]Move{
		{SidePlayer1, 0}, {SidePlayer2, 3},
		{SidePlayer1, 1}, {SidePlayer2, 4},
		{SidePlayer1, 2},
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if outcome, over := b.Evaluate(); !over || outcome != OutcomePlayer1 {
		t.Fatalf("expected replayed player1 win, got %q over=%v", outcome, over)
	}

	if _, err := Replay([]Move{{SidePlayer1, 0}, {SidePlayer2, 0}}); err == nil {
		t.Fatal("expected replay to fail on duplicate position")
	}
}

func TestOutcomeWinningSide(t *testing.T) {
	if s, ok := OutcomePlayer2.WinningSide(); !ok || s != SidePlayer2 {
		t.Fatalf("expected player2 side, got %q ok=%v", s, ok)
	}
	if _, ok := OutcomeDraw.WinningSide(); ok {
		t.Fatal("draw must not map to a side")
	}
}
