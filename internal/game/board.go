// Package game implements the tic-tac-toe board rules that every match
// runs on: move validation, win detection and outcome evaluation.
// It is a pure package with no I/O so the same rules can be exercised
// by the API, the settlement path and tests alike.
package game

import (
	"errors"
	"fmt"
)

// Side identifies which participant a move or a bet is attached to.
type Side string

const (
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

// Valid reports whether s is one of the two playable sides.
func (s Side) Valid() bool {
	return s == SidePlayer1 || s == SidePlayer2
}

// Opponent returns the other side. Calling it on an invalid side
// returns the empty side.
func (s Side) Opponent() Side {
	switch s {
	case SidePlayer1:
		return SidePlayer2
	case SidePlayer2:
		return SidePlayer1
	}
	return ""
}

// Outcome is the result of a finished board: one of the sides, or a draw.
type Outcome string

const (
	OutcomePlayer1 Outcome = "player1"
	OutcomePlayer2 Outcome = "player2"
	OutcomeDraw    Outcome = "draw"
)

// Valid reports whether o is a recognized terminal outcome.
func (o Outcome) Valid() bool {
	return o == OutcomePlayer1 || o == OutcomePlayer2 || o == OutcomeDraw
}

// WinningSide maps a non-draw outcome back to the side that won.
// ok is false for draws and malformed outcomes.
func (o Outcome) WinningSide() (Side, bool) {
	switch o {
	case OutcomePlayer1:
		return SidePlayer1, true
	case OutcomePlayer2:
		return SidePlayer2, true
	}
	return "", false
}

// Move is a single placement on the board.
type Move struct {
	Side     Side
	Position int
}

// ErrInvalidMove is the root of every validation failure. Callers match
// with errors.Is and read the wrapped message for the concrete reason.
var ErrInvalidMove = errors.New("invalid move")

// Cells is the default number of positions on the board.
const Cells = 9

// Board holds an in-progress game. The zero value is not usable; build
// one with New or Default.
type Board struct {
	cells []Side
	moves int
	lines [][3]int
	last  Side
}

// defaultLines enumerates every winning line. Order matters: when a
// move completes more than one line at once, the first line in this
// order is reported as the winning one.
var defaultLines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Default returns an empty standard board: 9 cells, 8 winning lines.
func Default() *Board {
	return New(Cells, nil)
}

// New returns an empty board with the given cell count and winning
// lines. Zero or negative cells means the default size; nil lines mean
// the standard line table. Lines referencing positions outside the
// board are ignored.
func New(cells int, lines [][3]int) *Board {
	if cells <= 0 {
		cells = Cells
	}
	if lines == nil {
		lines = defaultLines
	}
	b := &Board{
		cells: make([]Side, cells),
		lines: make([][3]int, len(lines)),
	}
	copy(b.lines, lines)
	return b
}

// Cell returns the side occupying position pos, or the empty side.
func (b *Board) Cell(pos int) Side {
	if pos < 0 || pos >= len(b.cells) {
		return ""
	}
	return b.cells[pos]
}

// Size returns the number of positions on the board.
func (b *Board) Size() int {
	return len(b.cells)
}

// Cells returns a copy of the current board layout, empty string for
// unoccupied positions.
func (b *Board) Cells() []Side {
	out := make([]Side, len(b.cells))
	copy(out, b.cells)
	return out
}

// MoveCount returns how many moves have been applied.
func (b *Board) MoveCount() int {
	return b.moves
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool {
	return b.moves == len(b.cells)
}

// Validate checks a candidate move against the current board without
// applying it. The returned error wraps ErrInvalidMove.
func (b *Board) Validate(m Move) error {
	if !m.Side.Valid() {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidMove, m.Side)
	}
	if m.Position < 0 || m.Position >= len(b.cells) {
		return fmt.Errorf("%w: position %d out of range [0,%d)", ErrInvalidMove, m.Position, len(b.cells))
	}
	if b.last == m.Side {
		return fmt.Errorf("%w: %s moved last, sides alternate", ErrInvalidMove, m.Side)
	}
	if _, over := b.Evaluate(); over {
		return fmt.Errorf("%w: game already decided", ErrInvalidMove)
	}
	if b.cells[m.Position] != "" {
		return fmt.Errorf("%w: position %d already occupied", ErrInvalidMove, m.Position)
	}
	return nil
}

// Apply validates the move and places it on the board.
func (b *Board) Apply(m Move) error {
	if err := b.Validate(m); err != nil {
		return err
	}
	b.cells[m.Position] = m.Side
	b.moves++
	b.last = m.Side
	return nil
}

// Evaluate inspects the board for a terminal state. over is false while
// the game can continue. When over is true, outcome is the winning side
// or a draw when the board filled up with no completed line.
func (b *Board) Evaluate() (outcome Outcome, over bool) {
	if line, ok := b.winningLine(); ok {
		switch b.cells[line[0]] {
		case SidePlayer1:
			return OutcomePlayer1, true
		case SidePlayer2:
			return OutcomePlayer2, true
		}
	}
	if b.Full() {
		return OutcomeDraw, true
	}
	return "", false
}

// WinningLine returns the completed line and true when a side has won.
// With multiple simultaneously completed lines the first one in the
// board's line order wins.
func (b *Board) WinningLine() ([3]int, bool) {
	return b.winningLine()
}

func (b *Board) winningLine() ([3]int, bool) {
	size := len(b.cells)
	for _, line := range b.lines {
		if line[0] >= size || line[1] >= size || line[2] >= size {
			continue
		}
		a := b.cells[line[0]]
		if a == "" {
			continue
		}
		if a == b.cells[line[1]] && a == b.cells[line[2]] {
			return line, true
		}
	}
	return [3]int{}, false
}

// Replay builds a board by applying moves in order, failing on the
// first invalid one. It is used to re-derive an outcome from a stored
// move history.
func Replay(moves []Move) (*Board, error) {
	b := Default()
	for i, m := range moves {
		if err := b.Apply(m); err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
	}
	return b, nil
}
