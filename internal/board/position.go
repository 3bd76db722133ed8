package board

import (
	"github.com/notnil/chess"
)

// Position is an immutable chess position. Applying a move returns a new
// Position; the receiver is never modified, so a Position may be shared
// freely between goroutines.
type Position struct {
	pos *chess.Position
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{pos: chess.NewGame().Position()}
}

// FEN returns the canonical FEN serialization.
func (p *Position) FEN() string {
	return p.pos.String()
}

// String returns the FEN serialization.
func (p *Position) String() string {
	return p.FEN()
}

// SideToMove returns the color whose turn it is.
func (p *Position) SideToMove() Color {
	return colorOf(p.pos.Turn())
}

// Board returns the underlying piece placement for rendering.
func (p *Position) Board() *chess.Board {
	return p.pos.Board()
}

// LegalMoves returns every legal move in generation order. The order is
// deterministic for a given position.
func (p *Position) LegalMoves() []Move {
	valid := p.pos.ValidMoves()
	moves := make([]Move, len(valid))
	for i, m := range valid {
		moves[i] = Move{move: m, from: p.pos}
	}
	return moves
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	return len(p.pos.ValidMoves()) > 0
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.pos.Status() == chess.Checkmate
}

// IsStalemate returns true if the side to move has no legal move and is not in check.
func (p *Position) IsStalemate() bool {
	return p.pos.Status() == chess.Stalemate
}

// Apply returns the position reached by playing m. The move must come from
// this position's LegalMoves or ParseMove.
func (p *Position) Apply(m Move) *Position {
	return &Position{pos: p.pos.Update(m.move)}
}
